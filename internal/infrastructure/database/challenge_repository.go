package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
)

const challengeColumns = `id, challenge_id, name, description, start_time, moderator, valid_from, valid_until`

type challengeRow struct {
	ID          string       `db:"id"`
	ChallengeID string       `db:"challenge_id"`
	Name        string       `db:"name"`
	Description string       `db:"description"`
	StartTime   time.Time    `db:"start_time"`
	Moderator   string       `db:"moderator"`
	ValidFrom   time.Time    `db:"valid_from"`
	ValidUntil  sql.NullTime `db:"valid_until"`
}

func (r challengeRow) toDomain() *domain.Challenge {
	return &domain.Challenge{
		ID:          r.ID,
		ChallengeID: r.ChallengeID,
		ChallengePayload: domain.ChallengePayload{
			Name:        r.Name,
			Description: r.Description,
			StartTime:   r.StartTime.UTC(),
			Moderator:   r.Moderator,
		},
		Period: domain.Period{
			ValidFrom:  r.ValidFrom.UTC(),
			ValidUntil: nullableTime(r.ValidUntil),
		},
	}
}

type challengeRepository struct {
	db *DB
	v  versioned
}

func NewChallengeRepository(db *DB) repository.ChallengeRepository {
	return &challengeRepository{
		db: db,
		v:  versioned{db: db, table: "challenges", key: []string{"challenge_id"}, entity: "challenge"},
	}
}

func (r *challengeRepository) FindActive(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	var row challengeRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(r.v.activeQuery(challengeColumns)), challengeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("challenge not found: %s", challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}
	return row.toDomain(), nil
}

func (r *challengeRepository) InsertVersion(ctx context.Context, c *domain.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ChallengeID == "" {
		c.ChallengeID = uuid.New().String()
	}
	c.ValidFrom = r.v.stamp()
	c.ValidUntil = nil
	return r.insert(ctx, r.db, c)
}

func (r *challengeRepository) insert(ctx context.Context, q sqlx.ExtContext, c *domain.Challenge) error {
	query := `
		INSERT INTO challenges (id, challenge_id, name, description, start_time, moderator, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := q.ExecContext(ctx, q.Rebind(query),
		c.ID,
		c.ChallengeID,
		c.Name,
		c.Description,
		c.StartTime.UTC(),
		c.Moderator,
		c.ValidFrom,
	)
	if err != nil {
		return r.v.insertError(err, c.ChallengeID)
	}
	return nil
}

func (r *challengeRepository) Supersede(ctx context.Context, challengeID string, payload domain.ChallengePayload) (*domain.Challenge, error) {
	payload.StartTime = payload.StartTime.UTC()
	next := &domain.Challenge{
		ID:               uuid.New().String(),
		ChallengeID:      challengeID,
		ChallengePayload: payload,
	}

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		at, err := r.v.closeActive(ctx, tx, []any{challengeID}, challengeID)
		if err != nil {
			return err
		}
		next.ValidFrom = at
		return r.insert(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (r *challengeRepository) Close(ctx context.Context, challengeID string) error {
	return r.v.close(ctx, []any{challengeID}, challengeID)
}

func (r *challengeRepository) ListActive(ctx context.Context, filter repository.ChallengeFilter) ([]*domain.Challenge, error) {
	f := newActiveFilter().
		eq("moderator", filter.Moderator).
		since("start_time", filter.StartsFrom).
		before("start_time", filter.StartsBefore)
	query := f.query(challengeColumns, "challenges", "start_time", "challenge_id")

	var rows []challengeRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), f.args...); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	challenges := make([]*domain.Challenge, len(rows))
	for i, row := range rows {
		challenges[i] = row.toDomain()
	}
	return challenges, nil
}

func (r *challengeRepository) History(ctx context.Context, challengeID string) ([]*domain.Challenge, error) {
	var rows []challengeRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(r.v.historyQuery(challengeColumns)), challengeID); err != nil {
		return nil, fmt.Errorf("failed to load challenge history: %w", err)
	}

	challenges := make([]*domain.Challenge, len(rows))
	for i, row := range rows {
		challenges[i] = row.toDomain()
	}
	return challenges, nil
}

func (r *challengeRepository) ListActiveStarts(ctx context.Context) ([]domain.ChallengeStart, error) {
	query := `SELECT challenge_id, start_time FROM challenges WHERE valid_until IS NULL ORDER BY start_time ASC`

	var rows []struct {
		ChallengeID string    `db:"challenge_id"`
		StartTime   time.Time `db:"start_time"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list challenge starts: %w", err)
	}

	starts := make([]domain.ChallengeStart, len(rows))
	for i, row := range rows {
		starts[i] = domain.ChallengeStart{ChallengeID: row.ChallengeID, StartTime: row.StartTime.UTC()}
	}
	return starts, nil
}
