// Package domain contains the core domain model for academic duels.
//
// This package defines:
//   - Entities: Duel, Round, Invitation
//   - Value objects: Scores, Assessment, Session, Event
//   - The duel state transition rules (duel.go)
//   - Domain errors mapped to HTTP responses by the transport layer
//
// Rules for this package:
//   - No infrastructure concerns (database, HTTP, etc.)
//   - Entities validate their own invariants
//   - Transitions mutate the receiver only when they succeed
//
// A submission is applied in two steps: CanSubmit is a cheap pre-check
// before the judge is called, and ApplyRound re-validates and mutates the
// duel under the storage lock:
//
//	if err := duel.CanSubmit(userID); err != nil {
//	    return err
//	}
//	round, err := duel.ApplyRound(priorRounds, draft, time.Now())
package domain
