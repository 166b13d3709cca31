package ports

import (
	"context"
	"io"
	"time"

	"scholarduel/src/core/domain"
)

// ExternalService is the base interface for external service adapters.
type ExternalService interface {
	// Health checks if the external service is reachable.
	Health(ctx context.Context) error
}

// Argument is the text sent to the judge.
type Argument struct {
	Content  string `json:"content"`
	Topic    string `json:"topic"`
	Position string `json:"position"`
}

// Judge streams the raw rubric verdict for an argument.
type Judge interface {
	Name() string
	StreamAnalysis(ctx context.Context, arg Argument, w io.Writer) error
}

// Scorer turns an argument into a structured assessment.
type Scorer interface {
	Score(ctx context.Context, arg Argument) (domain.Assessment, error)
}

// EventPublisher relays committed changes. Publish is called after commit;
// a failure never rolls the change back.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// RateLimiter counts hits per key within a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Metrics records service level measurements.
type Metrics interface {
	DuelCreated()
	DuelTransition(status domain.DuelStatus)
	RoundSubmitted(scored bool)
	ScoringDuration(d time.Duration, ok bool)
	RealtimeConnections(delta int)
	RateLimited(scope string)
}
