package dto

import "time"

type InviteParticipantRequest struct {
	Username        string `json:"username" binding:"required"`
	ParticipantName string `json:"participant_name"`
}

type UpdateParticipantRequest struct {
	State           string  `json:"state" binding:"required"`
	ParticipantName *string `json:"participant_name"`
}

type ParticipantResponse struct {
	ID              string     `json:"id"`
	ChallengeID     string     `json:"challenge_id"`
	Username        string     `json:"username"`
	State           string     `json:"state"`
	ParticipantName string     `json:"participant_name"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

type ParticipantListResponse struct {
	Items      []ParticipantResponse `json:"items"`
	Pagination PaginationInfo        `json:"pagination"`
}

type ParticipantHistoryResponse struct {
	ChallengeID string                `json:"challenge_id"`
	Username    string                `json:"username"`
	Versions    []ParticipantResponse `json:"versions"`
}
