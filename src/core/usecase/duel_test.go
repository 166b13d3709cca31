package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarduel/src/core/domain"
)

func TestDuelServiceCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	challenger, invitee := session(uuid.New()), uuid.New()

	out, err := h.duels.Create(ctx, challenger, CreateDuelInput{
		OpponentID:         invitee,
		Topic:              "Is mathematics discovered?",
		ChallengerPosition: "Discovered",
		MaxRounds:          5,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DuelPending, out.Duel.Status)
	assert.Equal(t, "Discovered", out.Duel.ChallengerPosition)
	assert.Equal(t, domain.DefaultOpponentPosition, out.Duel.OpponentPosition)
	assert.Equal(t, invitee, out.Invitation.InviteeID)
	assert.Equal(t, 1, h.metrics.created)
	assert.Equal(t, []domain.EventType{domain.EventDuelCreated, domain.EventInvitationUpdated}, h.events.types())

	created := h.events.events[0]
	assert.ElementsMatch(t, []uuid.UUID{challenger.UserID, invitee}, created.Audience)
}

func TestDuelServiceCreateRequiresSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.duels.Create(context.Background(), domain.Session{}, CreateDuelInput{OpponentID: uuid.New(), Topic: "t", MaxRounds: 3})
	assert.True(t, domain.IsUnauthorized(err))
}

func TestDuelServiceRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("invitee accepts", func(t *testing.T) {
		h := newHarness(t)
		challenger, invitee := session(uuid.New()), session(uuid.New())
		created, err := h.duels.Create(ctx, challenger, CreateDuelInput{OpponentID: invitee.UserID, Topic: "t", MaxRounds: 3})
		require.NoError(t, err)
		h.events.reset()

		out, err := h.duels.Accept(ctx, invitee, created.Duel.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DuelActive, out.Duel.Status)
		assert.Equal(t, domain.InvitationAccepted, out.Invitation.Status)
		assert.Equal(t, challenger.UserID, *out.Duel.CurrentTurnUserID)
		assert.Equal(t, []domain.EventType{domain.EventDuelUpdated, domain.EventInvitationUpdated}, h.events.types())
	})

	t.Run("challenger cannot accept", func(t *testing.T) {
		h := newHarness(t)
		challenger := session(uuid.New())
		created, err := h.duels.Create(ctx, challenger, CreateDuelInput{OpponentID: uuid.New(), Topic: "t", MaxRounds: 3})
		require.NoError(t, err)

		_, err = h.duels.Accept(ctx, challenger, created.Duel.ID)
		assert.True(t, domain.IsForbidden(err))

		detail, err := h.duels.Get(ctx, challenger, created.Duel.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DuelPending, detail.Duel.Status)
	})

	t.Run("decline then delete", func(t *testing.T) {
		h := newHarness(t)
		challenger, invitee := session(uuid.New()), session(uuid.New())
		created, err := h.duels.Create(ctx, challenger, CreateDuelInput{OpponentID: invitee.UserID, Topic: "t", MaxRounds: 3})
		require.NoError(t, err)

		out, err := h.duels.Decline(ctx, invitee, created.Duel.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DuelDeclined, out.Duel.Status)

		h.events.reset()
		require.NoError(t, h.duels.Delete(ctx, invitee, created.Duel.ID))
		assert.Equal(t, []domain.EventType{domain.EventDuelDeleted}, h.events.types())

		_, err = h.duels.Get(ctx, challenger, created.Duel.ID)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("cancel", func(t *testing.T) {
		h := newHarness(t)
		challenger, invitee := session(uuid.New()), session(uuid.New())
		created, err := h.duels.Create(ctx, challenger, CreateDuelInput{OpponentID: invitee.UserID, Topic: "t", MaxRounds: 3})
		require.NoError(t, err)

		_, err = h.duels.Cancel(ctx, invitee, created.Duel.ID)
		assert.True(t, domain.IsForbidden(err))

		out, err := h.duels.Cancel(ctx, challenger, created.Duel.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DuelCancelled, out.Duel.Status)
		assert.Equal(t, domain.InvitationCancelled, out.Invitation.Status)

		_, err = h.duels.Accept(ctx, invitee, created.Duel.ID)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestDuelServiceDeleteActiveConflicts(t *testing.T) {
	h := newHarness(t)
	duel, challenger, _ := h.activeDuel(t, 3)

	err := h.duels.Delete(context.Background(), challenger, duel.ID)
	assert.True(t, domain.IsConflict(err))
	assert.Empty(t, h.events.types())
}

func TestDuelServiceList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	me := session(uuid.New())

	for i := 0; i < 3; i++ {
		_, err := h.duels.Create(ctx, me, CreateDuelInput{OpponentID: uuid.New(), Topic: "t", MaxRounds: 3})
		require.NoError(t, err)
	}
	_, err := h.duels.Create(ctx, session(uuid.New()), CreateDuelInput{OpponentID: me.UserID, Topic: "t", MaxRounds: 3})
	require.NoError(t, err)
	_, err = h.duels.Create(ctx, session(uuid.New()), CreateDuelInput{OpponentID: uuid.New(), Topic: "unrelated", MaxRounds: 3})
	require.NoError(t, err)

	all, err := h.duels.List(ctx, me, ListDuelsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := h.duels.List(ctx, me, ListDuelsInput{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = h.duels.List(ctx, me, ListDuelsInput{Status: "bogus"})
	assert.True(t, domain.IsValidationError(err))
}
