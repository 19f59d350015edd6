// Package archive stores the final summaries of ended lives.
package archive

import (
	"time"

	"github.com/dkeye/LiveState/internal/domain"
)

// SummaryRecord is the GORM model for the live_summaries table.
type SummaryRecord struct {
	ID                     string    `gorm:"type:varchar(36);primaryKey"`
	LiveID                 string    `gorm:"type:varchar(48);index;not null"`
	TotalDuration          int64     `gorm:"default:0"`
	TotalViewers           int       `gorm:"default:0"`
	TotalGiftsSent         int       `gorm:"default:0"`
	TotalGiftUniqueSenders int       `gorm:"default:0"`
	TotalGiftCoins         int       `gorm:"default:0"`
	TotalLikesReceived     int       `gorm:"default:0"`
	TotalMessageSent       int       `gorm:"default:0"`
	EndedAt                time.Time `gorm:"index;not null"`
}

func (SummaryRecord) TableName() string {
	return "live_summaries"
}

// Summary is the API view of a record.
type Summary struct {
	ID      string    `json:"id"`
	LiveID  string    `json:"liveID"`
	EndedAt time.Time `json:"endedAt"`
	domain.LiveSummaryData
}

func (m *SummaryRecord) ToDomain() Summary {
	return Summary{
		ID:      m.ID,
		LiveID:  m.LiveID,
		EndedAt: m.EndedAt,
		LiveSummaryData: domain.LiveSummaryData{
			TotalDuration:          m.TotalDuration,
			TotalViewers:           m.TotalViewers,
			TotalGiftsSent:         m.TotalGiftsSent,
			TotalGiftUniqueSenders: m.TotalGiftUniqueSenders,
			TotalGiftCoins:         m.TotalGiftCoins,
			TotalLikesReceived:     m.TotalLikesReceived,
			TotalMessageSent:       m.TotalMessageSent,
		},
	}
}

func recordFrom(id, liveID string, d domain.LiveSummaryData, endedAt time.Time) *SummaryRecord {
	return &SummaryRecord{
		ID:                     id,
		LiveID:                 liveID,
		TotalDuration:          d.TotalDuration,
		TotalViewers:           d.TotalViewers,
		TotalGiftsSent:         d.TotalGiftsSent,
		TotalGiftUniqueSenders: d.TotalGiftUniqueSenders,
		TotalGiftCoins:         d.TotalGiftCoins,
		TotalLikesReceived:     d.TotalLikesReceived,
		TotalMessageSent:       d.TotalMessageSent,
		EndedAt:                endedAt,
	}
}
