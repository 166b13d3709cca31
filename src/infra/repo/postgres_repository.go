package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
	"scholarduel/src/infra/db"
)

// PostgresRepository implements DuelRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ ports.DuelRepository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository backed by Postgres.
func NewPostgresRepository(pg *db.Postgres, log *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool: pg.Pool,
		log:  log,
	}
}

func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == "23505" }

// mapErr translates driver errors into domain errors for resource.
func mapErr(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.NewNotFoundError(resource)
	case isUniqueViolation(err):
		return domain.NewConflictError(resource + " already exists")
	case pgCode(err) == "23514":
		return domain.NewValidationError(resource, "violates a check constraint")
	}
	return fmt.Errorf("%s: %w", resource, err)
}

// Duels

const duelColumns = `
	id, challenger_id, opponent_id, topic, description,
	challenger_position, opponent_position, max_rounds, status,
	current_round, current_turn_user_id, challenger_score, opponent_score,
	winner_id, ko_type, ko_reason, created_at, started_at, ended_at, updated_at`

func scanDuel(row scanner) (*domain.Duel, error) {
	var d domain.Duel
	err := row.Scan(
		&d.ID, &d.ChallengerID, &d.OpponentID, &d.Topic, &d.Description,
		&d.ChallengerPosition, &d.OpponentPosition, &d.MaxRounds, &d.Status,
		&d.CurrentRound, &d.CurrentTurnUserID, &d.ChallengerScore, &d.OpponentScore,
		&d.WinnerID, &d.KOType, &d.KOReason, &d.CreatedAt, &d.StartedAt, &d.EndedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresRepository) CreateDuel(ctx context.Context, d *domain.Duel, inv *domain.Invitation) error {
	const insertDuel = `
		INSERT INTO duels (` + duelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertDuel,
			d.ID, d.ChallengerID, d.OpponentID, d.Topic, d.Description,
			d.ChallengerPosition, d.OpponentPosition, d.MaxRounds, d.Status,
			d.CurrentRound, d.CurrentTurnUserID, d.ChallengerScore, d.OpponentScore,
			d.WinnerID, d.KOType, d.KOReason, d.CreatedAt, d.StartedAt, d.EndedAt, d.UpdatedAt,
		); err != nil {
			return mapErr(err, "duel")
		}
		if inv == nil {
			return nil
		}
		return insertInvitation(ctx, tx, inv)
	})
}

func (r *PostgresRepository) GetDuel(ctx context.Context, id uuid.UUID) (*domain.Duel, error) {
	const q = `SELECT ` + duelColumns + ` FROM duels WHERE id = $1`
	d, err := scanDuel(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "duel")
	}
	return d, nil
}

func (r *PostgresRepository) ListDuels(ctx context.Context, f ports.DuelFilter) ([]domain.Duel, error) {
	const q = `
		SELECT ` + duelColumns + `
		FROM duels d
		WHERE (d.challenger_id = $1
			OR d.opponent_id = $1
			OR EXISTS (SELECT 1 FROM duel_invitations i WHERE i.duel_id = d.id AND i.invitee_id = $1))
		  AND ($2 = '' OR d.status = $2)
		ORDER BY d.created_at DESC
		LIMIT NULLIF($3, 0) OFFSET $4
	`
	rows, err := r.pool.Query(ctx, q, f.UserID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, mapErr(err, "duels")
	}
	defer rows.Close()

	var out []domain.Duel
	for rows.Next() {
		d, err := scanDuel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func updateDuel(ctx context.Context, tx pgx.Tx, d *domain.Duel) error {
	const q = `
		UPDATE duels
		SET opponent_id = $2,
			status = $3,
			current_round = $4,
			current_turn_user_id = $5,
			challenger_score = $6,
			opponent_score = $7,
			winner_id = $8,
			ko_type = $9,
			ko_reason = $10,
			started_at = $11,
			ended_at = $12,
			updated_at = $13
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, q,
		d.ID, d.OpponentID, d.Status, d.CurrentRound, d.CurrentTurnUserID,
		d.ChallengerScore, d.OpponentScore, d.WinnerID, d.KOType, d.KOReason,
		d.StartedAt, d.EndedAt, d.UpdatedAt,
	)
	if err != nil {
		return mapErr(err, "duel")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("duel")
	}
	return nil
}

func lockDuel(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Duel, error) {
	const q = `SELECT ` + duelColumns + ` FROM duels WHERE id = $1 FOR UPDATE`
	d, err := scanDuel(tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "duel")
	}
	return d, nil
}

func (r *PostgresRepository) MutateDuel(ctx context.Context, id uuid.UUID, fn ports.DuelMutation) (*domain.Duel, *domain.Invitation, error) {
	var (
		duel *domain.Duel
		inv  *domain.Invitation
	)
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if duel, err = lockDuel(ctx, tx, id); err != nil {
			return err
		}
		if inv, err = lockInvitation(ctx, tx, id); err != nil {
			return err
		}
		if err := fn(duel, inv); err != nil {
			return err
		}
		if err := updateDuel(ctx, tx, duel); err != nil {
			return err
		}
		if inv != nil {
			return updateInvitation(ctx, tx, inv)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return duel, inv, nil
}

func (r *PostgresRepository) SubmitRound(ctx context.Context, id uuid.UUID, fn ports.RoundSubmission) (*domain.Duel, *domain.Round, error) {
	var (
		duel  *domain.Duel
		round *domain.Round
	)
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if duel, err = lockDuel(ctx, tx, id); err != nil {
			return err
		}

		var prior int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM duel_rounds WHERE duel_id = $1`, id).Scan(&prior); err != nil {
			return fmt.Errorf("count rounds: %w", err)
		}

		if round, err = fn(duel, prior); err != nil {
			return err
		}
		if err := insertRound(ctx, tx, round); err != nil {
			return err
		}
		return updateDuel(ctx, tx, duel)
	})
	if err != nil {
		return nil, nil, err
	}
	return duel, round, nil
}

func (r *PostgresRepository) DeleteDuel(ctx context.Context, id uuid.UUID, fn ports.DuelMutation) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		duel, err := lockDuel(ctx, tx, id)
		if err != nil {
			return err
		}
		inv, err := lockInvitation(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(duel, inv); err != nil {
			return err
		}
		// rounds and invitation go with the duel (ON DELETE CASCADE)
		if _, err := tx.Exec(ctx, `DELETE FROM duels WHERE id = $1`, id); err != nil {
			return mapErr(err, "duel")
		}
		return nil
	})
}

// Rounds

const roundColumns = `
	id, duel_id, round_number, author_id, content, content_text,
	evidence_score, citation_score, logic_score, fallacy_penalty, total_score,
	has_fallacy, fallacy_type, analysis, scored, created_at`

func insertRound(ctx context.Context, tx pgx.Tx, rd *domain.Round) error {
	const q = `
		INSERT INTO duel_rounds (` + roundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := tx.Exec(ctx, q,
		rd.ID, rd.DuelID, rd.RoundNumber, rd.AuthorID, rd.Content, rd.ContentText,
		rd.Scores.Evidence, rd.Scores.Citation, rd.Scores.Logic, rd.Scores.FallacyPenalty, rd.TotalScore,
		rd.HasFallacy, rd.FallacyType, rd.Analysis, rd.Scored, rd.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.NewConflictError("round already submitted")
	}
	return mapErr(err, "round")
}

func (r *PostgresRepository) CountRounds(ctx context.Context, duelID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM duel_rounds WHERE duel_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, q, duelID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) ListRounds(ctx context.Context, duelID uuid.UUID) ([]domain.Round, error) {
	const q = `
		SELECT ` + roundColumns + `
		FROM duel_rounds
		WHERE duel_id = $1
		ORDER BY round_number, created_at
	`
	rows, err := r.pool.Query(ctx, q, duelID)
	if err != nil {
		return nil, mapErr(err, "rounds")
	}
	defer rows.Close()

	var out []domain.Round
	for rows.Next() {
		var rd domain.Round
		if err := rows.Scan(
			&rd.ID, &rd.DuelID, &rd.RoundNumber, &rd.AuthorID, &rd.Content, &rd.ContentText,
			&rd.Scores.Evidence, &rd.Scores.Citation, &rd.Scores.Logic, &rd.Scores.FallacyPenalty, &rd.TotalScore,
			&rd.HasFallacy, &rd.FallacyType, &rd.Analysis, &rd.Scored, &rd.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

// Invitations

const invitationColumns = `id, duel_id, inviter_id, invitee_id, status, created_at, responded_at`

func scanInvitation(row scanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	if err := row.Scan(&inv.ID, &inv.DuelID, &inv.InviterID, &inv.InviteeID, &inv.Status, &inv.CreatedAt, &inv.RespondedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func insertInvitation(ctx context.Context, tx pgx.Tx, inv *domain.Invitation) error {
	const q = `
		INSERT INTO duel_invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, q, inv.ID, inv.DuelID, inv.InviterID, inv.InviteeID, inv.Status, inv.CreatedAt, inv.RespondedAt)
	return mapErr(err, "invitation")
}

func updateInvitation(ctx context.Context, tx pgx.Tx, inv *domain.Invitation) error {
	const q = `UPDATE duel_invitations SET status = $2, responded_at = $3 WHERE id = $1`
	_, err := tx.Exec(ctx, q, inv.ID, inv.Status, inv.RespondedAt)
	return mapErr(err, "invitation")
}

// lockInvitation returns nil without error when the duel has no invitation.
func lockInvitation(ctx context.Context, tx pgx.Tx, duelID uuid.UUID) (*domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM duel_invitations WHERE duel_id = $1 FOR UPDATE`
	inv, err := scanInvitation(tx.QueryRow(ctx, q, duelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err, "invitation")
	}
	return inv, nil
}

func (r *PostgresRepository) GetInvitationByDuel(ctx context.Context, duelID uuid.UUID) (*domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM duel_invitations WHERE duel_id = $1`
	inv, err := scanInvitation(r.pool.QueryRow(ctx, q, duelID))
	if err != nil {
		return nil, mapErr(err, "invitation")
	}
	return inv, nil
}

func (r *PostgresRepository) ListInvitations(ctx context.Context, f ports.InvitationFilter) ([]domain.Invitation, error) {
	const q = `
		SELECT ` + invitationColumns + `
		FROM duel_invitations
		WHERE invitee_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, f.InviteeID, string(f.Status))
	if err != nil {
		return nil, mapErr(err, "invitations")
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}
