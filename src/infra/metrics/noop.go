package metrics

import (
	"time"

	"scholarduel/src/core/domain"
)

// Noop discards every measurement.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) DuelCreated()                        {}
func (Noop) DuelTransition(domain.DuelStatus)    {}
func (Noop) RoundSubmitted(bool)                 {}
func (Noop) ScoringDuration(time.Duration, bool) {}
func (Noop) RealtimeConnections(int)             {}
func (Noop) RateLimited(string)                  {}
