package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureReportLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("report", "text", "stderr", 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("report should log at info, got %s", log.GetLevel())
	}
	if !ReportEnabled("report") || ReportEnabled("debug") {
		t.Fatal("ReportEnabled misreported")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "api.log")

	log := Logger()
	if err := log.Configure("info", "json", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	log.WithComponent("test").Info("hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte(`"message":"hello"`)) {
		t.Fatalf("log line missing: %s", data)
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestLogMetricWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	log.LogMetric("screener", "tokens_scraped", 12, "", Fields{"page": "listing"})

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["metric"] != "tokens_scraped" || line["metric_type"] != "counter" || line["component"] != "screener" {
		t.Fatalf("unexpected metric line: %v", line)
	}
}

type fakePublisher struct {
	puts int32
}

func (f *fakePublisher) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	atomic.AddInt32(&f.puts, 1)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakePublisher) PutDashboard(ctx context.Context, in *cloudwatch.PutDashboardInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error) {
	return &cloudwatch.PutDashboardOutput{}, nil
}

func TestLogMetricPublishesNumericValues(t *testing.T) {
	fake := &fakePublisher{}
	cwMu.Lock()
	prev := cwClient
	cwClient = fake
	cwMu.Unlock()
	t.Cleanup(func() {
		cwMu.Lock()
		cwClient = prev
		cwMu.Unlock()
	})

	log := Logger()
	log.SetOutput(&bytes.Buffer{})
	log.LogMetric("screener", "tokens_scraped", 3, "counter", nil)
	log.LogMetric("screener", "label", "not-a-number", "gauge", nil)

	if got := atomic.LoadInt32(&fake.puts); got != 1 {
		t.Fatalf("expected 1 publish, got %d", got)
	}
}

func TestErrorCountersByComponent(t *testing.T) {
	log := Logger()
	log.SetOutput(&bytes.Buffer{})

	before := snapshotCounts(&componentErrs)["counter-test"]
	log.WithComponent("counter-test").Error("boom")
	log.WithComponent("counter-test").Error("boom")
	if got := snapshotCounts(&componentErrs)["counter-test"]; got != before+2 {
		t.Fatalf("expected %d errors, got %d", before+2, got)
	}
}

func TestRecordPageFetch(t *testing.T) {
	RecordPageFetch("test-page", 100)
	RecordPageFetch("test-page", 50)
	stats := snapshotPages()["test-page"]
	if stats["fetches"] < 2 || stats["bytes"] < 150 {
		t.Fatalf("unexpected page stats: %v", stats)
	}
}
