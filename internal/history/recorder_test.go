package history_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gateway-module-core/internal/history"
	"github.com/nerrad567/gateway-module-core/internal/infrastructure/config"
	"github.com/nerrad567/gateway-module-core/model"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.HistoryConfig {
	return config.HistoryConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:8086",
		Token:   "gateway-dev-token",
		Org:     "gateway",
		Bucket:  "readings",
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running locally.
func skipIfNoInfluxDB(t *testing.T) *history.Recorder {
	t.Helper()
	recorder, err := history.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	return recorder
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := history.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error when disabled")
	}
	if !errors.Is(err, history.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // Non-existent port

	_, err := history.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error for unreachable server")
	}
	if !errors.Is(err, history.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestRecordSensorReadings(t *testing.T) {
	recorder := skipIfNoInfluxDB(t)
	defer recorder.Close()

	var writeErr error
	var mu sync.Mutex
	recorder.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	recorder.RecordSensorReadings("D1", "T", []model.SensorReading{
		{Reference: "T", Values: []string{"21.5"}, RTC: uint64(time.Now().UnixMilli())},
		{Reference: "T", Values: []string{"22.0"}, RTC: uint64(time.Now().UnixMilli())},
	})
	recorder.RecordSensorReadings("D1", "STATUS", []model.SensorReading{
		{Reference: "STATUS", Values: []string{"OK"}, RTC: uint64(time.Now().UnixMilli())},
	})
	recorder.RecordSensorReadings("D1", "ACCEL", []model.SensorReading{
		{Reference: "ACCEL", Values: []string{"0.1", "0.2", "9.8"}, RTC: uint64(time.Now().UnixMilli())},
	})
	recorder.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("Write error = %v", writeErr)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := skipIfNoInfluxDB(t)
	defer recorder.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := recorder.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	recorder := skipIfNoInfluxDB(t)

	recorder.RecordSensorReadings("D1", "T", []model.SensorReading{
		{Reference: "T", Values: []string{"1"}, RTC: uint64(time.Now().UnixMilli())},
	})

	if err := recorder.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if recorder.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes and flushes after close are no-ops
	recorder.RecordSensorReadings("D1", "T", []model.SensorReading{
		{Reference: "T", Values: []string{"2"}, RTC: uint64(time.Now().UnixMilli())},
	})
	recorder.Flush()
}
