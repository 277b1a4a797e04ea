package domain

import "time"

// Period is the validity window shared by every versioned row.
// A nil ValidUntil marks the active version.
type Period struct {
	ValidFrom  time.Time  `db:"valid_from" json:"valid_from"`
	ValidUntil *time.Time `db:"valid_until" json:"valid_until,omitempty"`
}

// IsActive reports whether the row is the current version.
func (p Period) IsActive() bool {
	return p.ValidUntil == nil
}

// Covers reports whether the row was the effective version at t.
func (p Period) Covers(t time.Time) bool {
	if t.Before(p.ValidFrom) {
		return false
	}
	return p.ValidUntil == nil || t.Before(*p.ValidUntil)
}
