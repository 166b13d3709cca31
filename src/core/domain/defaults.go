package domain

// AllowedMaxRounds lists the round counts a challenger may choose.
var AllowedMaxRounds = []int{3, 5, 7}

// DefaultChallengerPosition is used when the challenger leaves the position blank.
const DefaultChallengerPosition = "For"

// DefaultOpponentPosition is used when the challenger leaves the opponent position blank.
const DefaultOpponentPosition = "Against"

const (
	MaxTopicLength       = 300
	MaxDescriptionLength = 2000
	MaxPositionLength    = 120
	MaxArgumentLength    = 20000
)

// Upper bounds for each judged dimension.
const (
	MaxEvidenceScore  = 40
	MaxCitationScore  = 30
	MaxLogicScore     = 30
	MaxFallacyPenalty = 30
	MaxTotalScore     = MaxEvidenceScore + MaxCitationScore + MaxLogicScore
)
