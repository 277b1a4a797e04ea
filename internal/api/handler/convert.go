package handler

import (
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
)

func toUserResponse(u *domain.User) dto.UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return dto.UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Nickname:   u.Nickname,
		Roles:      roles,
		ValidFrom:  u.ValidFrom,
		ValidUntil: u.ValidUntil,
	}
}

func toChallengeResponse(ch *domain.Challenge) dto.ChallengeResponse {
	return dto.ChallengeResponse{
		ID:          ch.ID,
		ChallengeID: ch.ChallengeID,
		Name:        ch.Name,
		Description: ch.Description,
		StartTime:   ch.StartTime,
		Moderator:   ch.Moderator,
		ValidFrom:   ch.ValidFrom,
		ValidUntil:  ch.ValidUntil,
	}
}

func toParticipantResponse(p *domain.ChallengeParticipant) dto.ParticipantResponse {
	return dto.ParticipantResponse{
		ID:              p.ID,
		ChallengeID:     p.ChallengeID,
		Username:        p.Username,
		State:           string(p.State),
		ParticipantName: p.ParticipantName,
		ValidFrom:       p.ValidFrom,
		ValidUntil:      p.ValidUntil,
	}
}

func toScheduleEntries(starts []domain.ChallengeStart) []dto.ScheduleEntry {
	entries := make([]dto.ScheduleEntry, len(starts))
	for i, s := range starts {
		entries[i] = dto.ScheduleEntry{ChallengeID: s.ChallengeID, StartTime: s.StartTime}
	}
	return entries
}
