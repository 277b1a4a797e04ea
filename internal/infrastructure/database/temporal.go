package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
)

// versioned holds what the user, participant and challenge repositories share:
// the table name, its natural key columns and the close-then-insert mechanics.
type versioned struct {
	db     *DB
	table  string
	key    []string
	entity string
}

func (v versioned) keyPredicate() string {
	parts := make([]string, len(v.key))
	for i, col := range v.key {
		parts[i] = col + " = ?"
	}
	return strings.Join(parts, " AND ")
}

// stamp is the write-time clock, at the precision both dialects store.
func (v versioned) stamp() time.Time {
	return v.db.now().UTC().Truncate(time.Microsecond)
}

// closeAt returns a close time strictly after validFrom, even when the clock
// has not moved since the row was written.
func (v versioned) closeAt(validFrom time.Time) time.Time {
	at := v.stamp()
	if !at.After(validFrom) {
		at = validFrom.UTC().Add(time.Microsecond)
	}
	return at
}

func (v versioned) activeQuery(columns string) string {
	return fmt.Sprintf(`SELECT %s FROM %s WHERE %s AND valid_until IS NULL`, columns, v.table, v.keyPredicate())
}

func (v versioned) asOfQuery(columns string) string {
	return fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s AND valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)
		ORDER BY valid_from DESC
		LIMIT 1
	`, columns, v.table, v.keyPredicate())
}

func (v versioned) historyQuery(columns string) string {
	return fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY valid_from ASC`, columns, v.table, v.keyPredicate())
}

// closeActive sets valid_until on the active row and returns the timestamp it
// used, which is also the valid_from of any successor.
func (v versioned) closeActive(ctx context.Context, tx *sqlx.Tx, keyArgs []any, desc string) (time.Time, error) {
	var from time.Time
	query := v.activeQuery("valid_from") + v.db.lockClause()
	err := sqlx.GetContext(ctx, tx, &from, tx.Rebind(query), keyArgs...)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, domain.NotFound("%s not found: %s", v.entity, desc)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to find active %s: %w", v.entity, err)
	}

	at := v.closeAt(from)
	update := fmt.Sprintf(`UPDATE %s SET valid_until = ? WHERE %s AND valid_until IS NULL`, v.table, v.keyPredicate())
	result, err := tx.ExecContext(ctx, tx.Rebind(update), append([]any{at}, keyArgs...)...)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to close %s: %w", v.entity, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return time.Time{}, domain.Conflict("%s was modified concurrently: %s", v.entity, desc)
	}

	return at, nil
}

// close ends the active version without a successor.
func (v versioned) close(ctx context.Context, keyArgs []any, desc string) error {
	return v.db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := v.closeActive(ctx, tx, keyArgs, desc)
		return err
	})
}

// insertError classifies a failed insert of an active row.
func (v versioned) insertError(err error, desc string) error {
	if isUniqueViolation(err) {
		conflict := domain.Conflict("%s already exists: %s", v.entity, desc)
		conflict.Err = err
		return conflict
	}
	return fmt.Errorf("failed to create %s: %w", v.entity, err)
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
