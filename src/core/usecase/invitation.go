package usecase

import (
	"context"
	"log/slog"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// InvitationService lists the invitations addressed to the caller.
type InvitationService struct {
	repo ports.DuelRepository
	log  *slog.Logger
}

func NewInvitationService(repo ports.DuelRepository, log *slog.Logger) *InvitationService {
	return &InvitationService{repo: repo, log: log}
}

// List returns the caller's invitations, newest first. An empty status
// returns every status.
func (s *InvitationService) List(ctx context.Context, sess domain.Session, status domain.InvitationStatus) ([]domain.Invitation, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown invitation status")
	}
	return s.repo.ListInvitations(ctx, ports.InvitationFilter{InviteeID: sess.UserID, Status: status})
}
