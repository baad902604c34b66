package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
)

type pageStat struct {
	fetches int64
	bytes   int64
}

var (
	warnCount     int64
	errorCount    int64
	fetchFailures int64
	tokensScraped int64
	rowsSkipped   int64
	pages         sync.Map // map[string]*pageStat keyed by page kind
	componentErrs sync.Map // map[string]*int64
	componentWarn sync.Map // map[string]*int64
)

func recordWarn(component string) {
	atomic.AddInt64(&warnCount, 1)
	bump(&componentWarn, component)
}

func recordError(component string) {
	atomic.AddInt64(&errorCount, 1)
	bump(&componentErrs, component)
}

func bump(m *sync.Map, key string) {
	v, _ := m.LoadOrStore(key, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// RecordPageFetch counts a successful upstream fetch of the given page kind
// (listing, detail).
func RecordPageFetch(kind string, size int) {
	v, _ := pages.LoadOrStore(kind, &pageStat{})
	ps := v.(*pageStat)
	atomic.AddInt64(&ps.fetches, 1)
	atomic.AddInt64(&ps.bytes, int64(size))
}

func RecordFetchFailure() {
	atomic.AddInt64(&fetchFailures, 1)
}

func RecordTokensScraped(n int) {
	atomic.AddInt64(&tokensScraped, int64(n))
}

func RecordRowSkipped() {
	atomic.AddInt64(&rowsSkipped, 1)
}

// StartReport begins periodic logging of system and scrape statistics until
// ctx is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func snapshotPages() map[string]map[string]int64 {
	out := map[string]map[string]int64{}
	pages.Range(func(k, v any) bool {
		ps := v.(*pageStat)
		out[k.(string)] = map[string]int64{
			"fetches": atomic.LoadInt64(&ps.fetches),
			"bytes":   atomic.LoadInt64(&ps.bytes),
		}
		return true
	})
	return out
}

func snapshotCounts(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

func logReport(ctx context.Context, log *Log) {
	cpuPct := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	var memUsed, diskUsed, bytesSent, bytesRecv uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsed = vm.Used
	}
	if du, err := disk.Usage("/"); err == nil {
		diskUsed = du.Used
	}
	if nc, err := gnet.IOCounters(false); err == nil && len(nc) > 0 {
		bytesSent = nc[0].BytesSent
		bytesRecv = nc[0].BytesRecv
	}

	pageData := snapshotPages()
	errs := atomic.LoadInt64(&errorCount)
	warns := atomic.LoadInt64(&warnCount)
	failures := atomic.LoadInt64(&fetchFailures)
	scraped := atomic.LoadInt64(&tokensScraped)
	skipped := atomic.LoadInt64(&rowsSkipped)

	log.WithComponent("report").WithFields(Fields{
		"errors":           errs,
		"warns":            warns,
		"errors_by_source": snapshotCounts(&componentErrs),
		"warns_by_source":  snapshotCounts(&componentWarn),
		"fetch_failures":   failures,
		"tokens_scraped":   scraped,
		"rows_skipped":     skipped,
		"pages":            pageData,
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memUsed) / 1024 / 1024,
		"disk_mb":          int64(diskUsed) / 1024 / 1024,
		"net_bytes_sent":   int64(bytesSent),
		"net_bytes_recv":   int64(bytesRecv),
	}).Info("runtime report")

	count := func(name string, v int64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{MetricName: aws.String(name), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(v))}
	}
	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memUsed) / 1024 / 1024)},
		{MetricName: aws.String("DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskUsed) / 1024 / 1024)},
		count("Errors", errs),
		count("Warns", warns),
		count("FetchFailures", failures),
		count("TokensScraped", scraped),
		count("RowsSkipped", skipped),
		{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	}
	for kind, stats := range pageData {
		dims := []cwtypes.Dimension{{Name: aws.String("Page"), Value: aws.String(kind)}}
		data = append(data,
			cwtypes.MetricDatum{MetricName: aws.String("PageFetches"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(stats["fetches"]))},
			cwtypes.MetricDatum{MetricName: aws.String("PageBytes"), Unit: cwtypes.StandardUnitBytes, Dimensions: dims, Value: aws.Float64(float64(stats["bytes"]))},
		)
	}

	publishMetrics(ctx, data)
}
