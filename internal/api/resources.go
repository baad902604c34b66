package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"believescreener/logger"
)

// hostSample is one reading of the host the API runs on.
type hostSample struct {
	Timestamp   string  `json:"timestamp"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryPct   float64 `json:"memory_percent"`
	DiskUsed    uint64  `json:"disk_used"`
	DiskTotal   uint64  `json:"disk_total"`
	DiskPct     float64 `json:"disk_percent"`
	NetSent     uint64  `json:"net_bytes_sent"`
	NetRecv     uint64  `json:"net_bytes_recv"`
}

// Collectors are package variables so tests can run without touching the
// host.
var (
	cpuPercentFn = func(ctx context.Context, interval time.Duration) ([]float64, error) {
		return cpu.PercentWithContext(ctx, interval, false)
	}
	memoryStatsFn = mem.VirtualMemoryWithContext
	diskUsageFn   = disk.UsageWithContext
	netCountersFn = func(ctx context.Context) ([]net.IOCountersStat, error) {
		return net.IOCountersWithContext(ctx, false)
	}
)

// resourceSampler records a hostSample every interval until stopped. The cpu
// reading itself spans the interval, so no ticker is needed.
type resourceSampler struct {
	samples  *history[hostSample]
	interval time.Duration
	diskPath string
	log      *logger.Log

	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
}

func newResourceSampler(limit int, interval time.Duration, diskPath string, log *logger.Log) *resourceSampler {
	if interval <= 0 {
		interval = time.Second
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &resourceSampler{
		samples:  newHistory[hostSample](limit),
		interval: interval,
		diskPath: diskPath,
		log:      log,
	}
}

func (s *resourceSampler) start(ctx context.Context) {
	if s == nil || s.running.Swap(true) {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		for ctx.Err() == nil {
			if sample, ok := s.sample(ctx); ok {
				s.samples.add(sample)
			}
		}
	}()
}

func (s *resourceSampler) stop() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *resourceSampler) snapshot() []hostSample {
	if s == nil {
		return nil
	}
	return s.samples.snapshot()
}

func (s *resourceSampler) sample(ctx context.Context) (hostSample, bool) {
	log := s.log.WithComponent("resource_sampler")

	cpuSamples, err := cpuPercentFn(ctx, s.interval)
	if err != nil {
		log.WithError(err).Debug("failed to sample cpu usage")
		return s.backoff(ctx)
	}
	memStats, err := memoryStatsFn(ctx)
	if err != nil {
		log.WithError(err).Debug("failed to sample memory usage")
		return s.backoff(ctx)
	}
	diskStats, err := diskUsageFn(ctx, s.diskPath)
	if err != nil {
		log.WithError(err).Debug("failed to sample disk usage")
		return s.backoff(ctx)
	}

	out := hostSample{
		Timestamp:   time.Now().Format(time.RFC3339Nano),
		MemoryUsed:  memStats.Used,
		MemoryTotal: memStats.Total,
		MemoryPct:   memStats.UsedPercent,
		DiskUsed:    diskStats.Used,
		DiskTotal:   diskStats.Total,
		DiskPct:     diskStats.UsedPercent,
	}
	if len(cpuSamples) > 0 {
		out.CPUPercent = cpuSamples[0]
	}
	// network counters are optional; some containers do not expose them
	if counters, err := netCountersFn(ctx); err == nil && len(counters) > 0 {
		out.NetSent = counters[0].BytesSent
		out.NetRecv = counters[0].BytesRecv
	}
	return out, true
}

// backoff waits one interval after a failed reading so a broken collector
// does not spin.
func (s *resourceSampler) backoff(ctx context.Context) (hostSample, bool) {
	select {
	case <-ctx.Done():
	case <-time.After(s.interval):
	}
	return hostSample{}, false
}
