package dto

import "time"

type ChallengeRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	Moderator   string    `json:"moderator" binding:"required"`
}

type ChallengeResponse struct {
	ID          string     `json:"id"`
	ChallengeID string     `json:"challenge_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	Moderator   string     `json:"moderator"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

type ChallengeListResponse struct {
	Items      []ChallengeResponse `json:"items"`
	Pagination PaginationInfo      `json:"pagination"`
}

type ChallengeHistoryResponse struct {
	ChallengeID string              `json:"challenge_id"`
	Versions    []ChallengeResponse `json:"versions"`
}
