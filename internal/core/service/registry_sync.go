package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const resyncTimeout = 30 * time.Second

// RegistrySyncer periodically rebuilds a ChallengeRegistry from storage so
// that drift from missed upserts is bounded by the schedule.
type RegistrySyncer struct {
	registry *ChallengeRegistry
	cron     *cron.Cron
	logger   *logrus.Logger
}

// NewRegistrySyncer schedules FlushAll using a standard five-field cron spec.
func NewRegistrySyncer(registry *ChallengeRegistry, schedule string, logger *logrus.Logger) (*RegistrySyncer, error) {
	if logger == nil {
		logger = logrus.New()
	}

	s := &RegistrySyncer{
		registry: registry,
		cron:     cron.New(),
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.resync); err != nil {
		return nil, fmt.Errorf("invalid registry resync schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *RegistrySyncer) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	if err := s.registry.FlushAll(ctx); err != nil {
		s.logger.WithError(err).Warn("scheduled registry resync failed")
		return
	}
	s.logger.WithField("challenges", s.registry.Size()).Debug("scheduled registry resync completed")
}

func (s *RegistrySyncer) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running resync to finish.
func (s *RegistrySyncer) Stop() {
	<-s.cron.Stop().Done()
}
