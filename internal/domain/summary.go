package domain

// LiveSummaryData is the running tally the native SDK reports for a live.
type LiveSummaryData struct {
	TotalDuration          int64 `json:"totalDuration"`
	TotalViewers           int   `json:"totalViewers"`
	TotalGiftsSent         int   `json:"totalGiftsSent"`
	TotalGiftUniqueSenders int   `json:"totalGiftUniqueSenders"`
	TotalGiftCoins         int   `json:"totalGiftCoins"`
	TotalLikesReceived     int   `json:"totalLikesReceived"`
	TotalMessageSent       int   `json:"totalMessageSent"`
}
