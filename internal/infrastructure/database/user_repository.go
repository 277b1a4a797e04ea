package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
)

const userColumns = `id, username, password_hash, nickname, roles, valid_from, valid_until`

type userRow struct {
	ID           string       `db:"id"`
	Username     string       `db:"username"`
	PasswordHash string       `db:"password_hash"`
	Nickname     string       `db:"nickname"`
	Roles        string       `db:"roles"`
	ValidFrom    time.Time    `db:"valid_from"`
	ValidUntil   sql.NullTime `db:"valid_until"`
}

func (r userRow) toDomain() (*domain.User, error) {
	user := &domain.User{
		ID:       r.ID,
		Username: r.Username,
		UserPayload: domain.UserPayload{
			PasswordHash: r.PasswordHash,
			Nickname:     r.Nickname,
		},
		Period: domain.Period{
			ValidFrom:  r.ValidFrom.UTC(),
			ValidUntil: nullableTime(r.ValidUntil),
		},
	}
	if err := json.Unmarshal([]byte(r.Roles), &user.Roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
	}
	return user, nil
}

type userRepository struct {
	db *DB
	v  versioned
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{
		db: db,
		v:  versioned{db: db, table: "users", key: []string{"username"}, entity: "user"},
	}
}

func (r *userRepository) FindActive(ctx context.Context, username string) (*domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(r.v.activeQuery(userColumns)), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("user not found: %s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return row.toDomain()
}

func (r *userRepository) FindAsOf(ctx context.Context, username string, at time.Time) (*domain.User, error) {
	at = at.UTC()
	var row userRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(r.v.asOfQuery(userColumns)), username, at, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("user not found at %s: %s", at.Format(time.RFC3339), username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return row.toDomain()
}

func (r *userRepository) InsertVersion(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.ValidFrom = r.v.stamp()
	user.ValidUntil = nil
	return r.insert(ctx, r.db, user)
}

func (r *userRepository) insert(ctx context.Context, q sqlx.ExtContext, user *domain.User) error {
	rolesJSON, err := json.Marshal(rolesOrEmpty(user.Roles))
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}

	query := `
		INSERT INTO users (id, username, password_hash, nickname, roles, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = q.ExecContext(ctx, q.Rebind(query),
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Nickname,
		string(rolesJSON),
		user.ValidFrom,
	)
	if err != nil {
		return r.v.insertError(err, user.Username)
	}
	return nil
}

func (r *userRepository) Supersede(ctx context.Context, username string, payload domain.UserPayload) (*domain.User, error) {
	next := &domain.User{
		ID:       uuid.New().String(),
		Username: username,
		UserPayload: domain.UserPayload{
			PasswordHash: payload.PasswordHash,
			Nickname:     payload.Nickname,
			Roles:        append([]string(nil), payload.Roles...),
		},
	}

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		at, err := r.v.closeActive(ctx, tx, []any{username}, username)
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

func (r *userRepository) Close(ctx context.Context, username string) error {
	return r.v.close(ctx, []any{username}, username)
}

func (r *userRepository) ListActive(ctx context.Context, filter repository.UserFilter) ([]*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE valid_until IS NULL ORDER BY username ASC`, userColumns)

	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		user, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		// Roles are a JSON column; membership is checked here so that the
		// match is literal on both dialects.
		if filter.Role != nil && !user.HasRole(*filter.Role) {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *userRepository) History(ctx context.Context, username string) ([]*domain.User, error) {
	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(r.v.historyQuery(userColumns)), username); err != nil {
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		user, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
