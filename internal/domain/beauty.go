package domain

const (
	MinBeautyLevel = 0
	MaxBeautyLevel = 9
)

type BeautyLevels struct {
	SmoothLevel    float64 `json:"smoothLevel"`
	WhitenessLevel float64 `json:"whitenessLevel"`
	RuddyLevel     float64 `json:"ruddyLevel"`
}
