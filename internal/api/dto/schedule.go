package dto

import "time"

type ScheduleEntry struct {
	ChallengeID string    `json:"challenge_id"`
	StartTime   time.Time `json:"start_time"`
}

type ScheduleResponse struct {
	Items []ScheduleEntry `json:"items"`
	Size  int             `json:"size"`
}

type FlushResponse struct {
	Status string `json:"status"`
	Size   int    `json:"size"`
}
