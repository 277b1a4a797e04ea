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

const participantColumns = `id, challenge_id, username, state, participant_name, valid_from, valid_until`

type participantRow struct {
	ID              string       `db:"id"`
	ChallengeID     string       `db:"challenge_id"`
	Username        string       `db:"username"`
	State           string       `db:"state"`
	ParticipantName string       `db:"participant_name"`
	ValidFrom       time.Time    `db:"valid_from"`
	ValidUntil      sql.NullTime `db:"valid_until"`
}

func (r participantRow) toDomain() *domain.ChallengeParticipant {
	return &domain.ChallengeParticipant{
		ID: r.ID,
		ParticipantKey: domain.ParticipantKey{
			ChallengeID: r.ChallengeID,
			Username:    r.Username,
		},
		ParticipantPayload: domain.ParticipantPayload{
			State:           domain.ParticipantState(r.State),
			ParticipantName: r.ParticipantName,
		},
		Period: domain.Period{
			ValidFrom:  r.ValidFrom.UTC(),
			ValidUntil: nullableTime(r.ValidUntil),
		},
	}
}

type participantRepository struct {
	db *DB
	v  versioned
}

func NewParticipantRepository(db *DB) repository.ParticipantRepository {
	return &participantRepository{
		db: db,
		v: versioned{
			db:     db,
			table:  "challenge_participants",
			key:    []string{"challenge_id", "username"},
			entity: "participant",
		},
	}
}

func keyArgs(key domain.ParticipantKey) []any {
	return []any{key.ChallengeID, key.Username}
}

func keyDesc(key domain.ParticipantKey) string {
	return key.ChallengeID + "/" + key.Username
}

func (r *participantRepository) FindActive(ctx context.Context, key domain.ParticipantKey) (*domain.ChallengeParticipant, error) {
	var row participantRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(r.v.activeQuery(participantColumns)), keyArgs(key)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("participant not found: %s", keyDesc(key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return row.toDomain(), nil
}

func (r *participantRepository) FindAsOf(ctx context.Context, key domain.ParticipantKey, at time.Time) (*domain.ChallengeParticipant, error) {
	at = at.UTC()
	var row participantRow
	args := append(keyArgs(key), at, at)
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(r.v.asOfQuery(participantColumns)), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("participant not found at %s: %s", at.Format(time.RFC3339), keyDesc(key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return row.toDomain(), nil
}

func (r *participantRepository) InsertVersion(ctx context.Context, p *domain.ChallengeParticipant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.ValidFrom = r.v.stamp()
	p.ValidUntil = nil
	return r.insert(ctx, r.db, p)
}

func (r *participantRepository) insert(ctx context.Context, q sqlx.ExtContext, p *domain.ChallengeParticipant) error {
	query := `
		INSERT INTO challenge_participants (id, challenge_id, username, state, participant_name, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := q.ExecContext(ctx, q.Rebind(query),
		p.ID,
		p.ChallengeID,
		p.Username,
		string(p.State),
		p.ParticipantName,
		p.ValidFrom,
	)
	if err != nil {
		return r.v.insertError(err, keyDesc(p.ParticipantKey))
	}
	return nil
}

func (r *participantRepository) Supersede(ctx context.Context, key domain.ParticipantKey, payload domain.ParticipantPayload) (*domain.ChallengeParticipant, error) {
	next := &domain.ChallengeParticipant{
		ID:                 uuid.New().String(),
		ParticipantKey:     key,
		ParticipantPayload: payload,
	}

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		at, err := r.v.closeActive(ctx, tx, keyArgs(key), keyDesc(key))
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

func (r *participantRepository) Close(ctx context.Context, key domain.ParticipantKey) error {
	return r.v.close(ctx, keyArgs(key), keyDesc(key))
}

func (r *participantRepository) ListActive(ctx context.Context, filter repository.ParticipantFilter) ([]*domain.ChallengeParticipant, error) {
	var state *string
	if filter.State != nil {
		s := string(*filter.State)
		state = &s
	}

	f := newActiveFilter().
		eq("challenge_id", filter.ChallengeID).
		eq("username", filter.Username).
		eq("state", state)
	query := f.query(participantColumns, "challenge_participants", "challenge_id", "username")

	var rows []participantRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), f.args...); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	participants := make([]*domain.ChallengeParticipant, len(rows))
	for i, row := range rows {
		participants[i] = row.toDomain()
	}
	return participants, nil
}

func (r *participantRepository) History(ctx context.Context, key domain.ParticipantKey) ([]*domain.ChallengeParticipant, error) {
	var rows []participantRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(r.v.historyQuery(participantColumns)), keyArgs(key)...); err != nil {
		return nil, fmt.Errorf("failed to load participant history: %w", err)
	}

	participants := make([]*domain.ChallengeParticipant, len(rows))
	for i, row := range rows {
		participants[i] = row.toDomain()
	}
	return participants, nil
}
