package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChallengePayload struct {
	Name        string
	Description string
	StartTime   time.Time
	Moderator   string
}

// Challenge is versioned like users; ChallengeID is its natural key.
type Challenge struct {
	ID          string
	ChallengeID string
	ChallengePayload
	Period
}

func NewChallenge(payload ChallengePayload) *Challenge {
	payload.StartTime = payload.StartTime.UTC()
	return &Challenge{
		ID:               uuid.New().String(),
		ChallengeID:      uuid.New().String(),
		ChallengePayload: payload,
		Period:           Period{ValidFrom: time.Now().UTC()},
	}
}

// ChallengeStart is the projection held by the scheduling registry.
type ChallengeStart struct {
	ChallengeID string    `json:"challenge_id"`
	StartTime   time.Time `json:"start_time"`
}
