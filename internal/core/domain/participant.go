package domain

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantState string

const (
	ParticipantPending   ParticipantState = "PENDING"
	ParticipantAccepted  ParticipantState = "ACCEPTED"
	ParticipantRejected  ParticipantState = "REJECTED"
	ParticipantActive    ParticipantState = "ACTIVE"
	ParticipantCompleted ParticipantState = "COMPLETED"
)

func (s ParticipantState) Valid() bool {
	switch s {
	case ParticipantPending, ParticipantAccepted, ParticipantRejected, ParticipantActive, ParticipantCompleted:
		return true
	}
	return false
}

// ParticipantKey is the natural key of a challenge participant.
type ParticipantKey struct {
	ChallengeID string
	Username    string
}

type ParticipantPayload struct {
	State           ParticipantState
	ParticipantName string
}

type ChallengeParticipant struct {
	ID string
	ParticipantKey
	ParticipantPayload
	Period
}

// NewParticipant builds the first version of an invitation, always PENDING.
func NewParticipant(challengeID, username, name string) *ChallengeParticipant {
	return &ChallengeParticipant{
		ID:             uuid.New().String(),
		ParticipantKey: ParticipantKey{ChallengeID: challengeID, Username: username},
		ParticipantPayload: ParticipantPayload{
			State:           ParticipantPending,
			ParticipantName: name,
		},
		Period: Period{ValidFrom: time.Now().UTC()},
	}
}
