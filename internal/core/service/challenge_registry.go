package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

// StartSource is the storage view the registry is rebuilt from.
type StartSource interface {
	ListActiveStarts(ctx context.Context) ([]domain.ChallengeStart, error)
}

// ChallengeRegistry maps challenge ids to start times in memory. It is a
// best-effort cache: absence does not mean the challenge does not exist.
//
// Start times are stored and returned as time.Time values, so every Get hands
// out a copy and nothing outside the registry can alias its state.
type ChallengeRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	source  StartSource
	logger  *logrus.Logger
	metrics *observability.Metrics
}

func NewChallengeRegistry(source StartSource, logger *logrus.Logger, metrics *observability.Metrics) *ChallengeRegistry {
	return &ChallengeRegistry{
		entries: make(map[string]time.Time),
		source:  source,
		logger:  observability.OrDefault(logger),
		metrics: metrics,
	}
}

func (r *ChallengeRegistry) Upsert(challengeID string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[challengeID] = startTime
	r.reportSize()
}

// Delete removes the entry and reports whether one was present.
func (r *ChallengeRegistry) Delete(challengeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[challengeID]
	delete(r.entries, challengeID)
	r.reportSize()
	return ok
}

func (r *ChallengeRegistry) Get(challengeID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.entries[challengeID]
	return t, ok
}

func (r *ChallengeRegistry) Has(challengeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[challengeID]
	return ok
}

func (r *ChallengeRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ListAll returns a snapshot ordered by start time, then id.
func (r *ChallengeRegistry) ListAll() []domain.ChallengeStart {
	r.mu.RLock()
	out := make([]domain.ChallengeStart, 0, len(r.entries))
	for id, t := range r.entries {
		out = append(out, domain.ChallengeStart{ChallengeID: id, StartTime: t})
	}
	r.mu.RUnlock()

	sortStarts(out)
	return out
}

// StartingWithin returns the entries whose start time falls in [now, now+d].
func (r *ChallengeRegistry) StartingWithin(now time.Time, d time.Duration) []domain.ChallengeStart {
	until := now.Add(d)

	r.mu.RLock()
	var out []domain.ChallengeStart
	for id, t := range r.entries {
		if !t.Before(now) && !t.After(until) {
			out = append(out, domain.ChallengeStart{ChallengeID: id, StartTime: t})
		}
	}
	r.mu.RUnlock()

	sortStarts(out)
	return out
}

// LoadAll replaces the registry contents with the active challenges in
// storage. Readers see either the old map or the new one. If storage cannot
// be read the registry ends up empty and the error is returned.
func (r *ChallengeRegistry) LoadAll(ctx context.Context) error {
	starts, err := r.source.ListActiveStarts(ctx)

	next := make(map[string]time.Time, len(starts))
	if err == nil {
		for _, s := range starts {
			next[s.ChallengeID] = s.StartTime
		}
	}

	r.mu.Lock()
	r.entries = next
	r.reportSize()
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistryResyncTotal.WithLabelValues(observability.Outcome(err)).Inc()
	}
	if err != nil {
		r.logger.WithError(err).Error("challenge registry reload failed")
		return err
	}

	r.logger.WithField("challenges", len(next)).Debug("challenge registry reloaded")
	return nil
}

// FlushAll forces a full resync; it is LoadAll under the name callers use
// when they suspect drift.
func (r *ChallengeRegistry) FlushAll(ctx context.Context) error {
	return r.LoadAll(ctx)
}

// Clear empties the registry without touching storage.
func (r *ChallengeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]time.Time)
	r.reportSize()
}

// reportSize must be called with mu held.
func (r *ChallengeRegistry) reportSize() {
	if r.metrics != nil {
		r.metrics.RegistrySize.Set(float64(len(r.entries)))
	}
}

func sortStarts(starts []domain.ChallengeStart) {
	sort.Slice(starts, func(i, j int) bool {
		if starts[i].StartTime.Equal(starts[j].StartTime) {
			return starts[i].ChallengeID < starts[j].ChallengeID
		}
		return starts[i].StartTime.Before(starts[j].StartTime)
	})
}
