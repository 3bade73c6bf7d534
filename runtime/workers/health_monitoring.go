package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

type ProcessSnapshot struct {
	PID           int32
	CPUPercent    float64
	MemoryPercent float32
	RSS           uint64
	Goroutines    int
	SampledAt     time.Time
}

// HealthMonitoringWorker samples the server's own process at a fixed interval.
type HealthMonitoringWorker struct {
	mu             sync.RWMutex
	log            *slog.Logger
	metricInterval time.Duration
	pid            int32
	last           ProcessSnapshot
}

func NewHealthMonitoringWorker(log *slog.Logger, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	w.sample(p)

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

// Snapshot returns the latest sample, zero until the first one is taken.
func (w *HealthMonitoringWorker) Snapshot() ProcessSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *HealthMonitoringWorker) sample(p *process.Process) {
	snapshot := ProcessSnapshot{
		PID:        w.pid,
		Goroutines: goruntime.NumGoroutine(),
		SampledAt:  time.Now().UTC(),
	}
	if cpu, err := p.CPUPercent(); err == nil {
		snapshot.CPUPercent = cpu
	} else {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	}
	if mem, err := p.MemoryPercent(); err == nil {
		snapshot.MemoryPercent = mem
	} else {
		w.log.Debug("Error while finding process ram usage", "err", err)
	}
	if info, err := p.MemoryInfo(); err == nil {
		snapshot.RSS = info.RSS
	}

	w.mu.Lock()
	w.last = snapshot
	w.mu.Unlock()
}
