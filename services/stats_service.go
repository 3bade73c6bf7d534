package services

import (
	"time"

	"pair-chat/domain/event"
	"pair-chat/runtime"
	"pair-chat/runtime/workers"
)

type presenceStatser interface {
	Stats() runtime.PresenceStats
}

type processSampler interface {
	Snapshot() workers.ProcessSnapshot
}

type Stats struct {
	Connections   int
	Rooms         int
	CPUPercent    float64
	MemoryPercent float32
	RSS           uint64
	Goroutines    int
	SampledAt     time.Time
	Counters      map[string]uint64
	CensoredWords map[string]uint64
}

type StatsService struct {
	presence presenceStatser
	sampler  processSampler
	counter  *event.Counter
	censored *event.CensoredHandler
}

func NewStatsService(presence presenceStatser, sampler processSampler,
	counter *event.Counter, censored *event.CensoredHandler) *StatsService {
	return &StatsService{presence: presence, sampler: sampler, counter: counter, censored: censored}
}

func (s *StatsService) Stats() Stats {
	presence := s.presence.Stats()
	stats := Stats{
		Connections:   presence.Connections,
		Rooms:         presence.Rooms,
		Counters:      make(map[string]uint64),
		CensoredWords: make(map[string]uint64),
	}
	if s.sampler != nil {
		snapshot := s.sampler.Snapshot()
		stats.CPUPercent = snapshot.CPUPercent
		stats.MemoryPercent = snapshot.MemoryPercent
		stats.RSS = snapshot.RSS
		stats.Goroutines = snapshot.Goroutines
		stats.SampledAt = snapshot.SampledAt
	}
	if s.counter != nil {
		for t, n := range s.counter.Snapshot() {
			stats.Counters[string(t)] = n
		}
	}
	if s.censored != nil {
		stats.CensoredWords = s.censored.Hits()
	}
	return stats
}
