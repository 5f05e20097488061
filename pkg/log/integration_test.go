package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", CandidateKey, "Lasso")
	testLogger.Error("error message", fmt.Errorf("test error"), StageKey, "training")

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON numbers decode as float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "test error") {
		t.Error("error in key position should be logged under ErrAttrKey")
	}
	if !testLogger.ContainsField(StageKey, "training") {
		t.Error("fields after a leading error should still pair up")
	}
}

func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	runLogger := testLogger.With(
		RunIDKey, "0b8f5c1e",
		ComponentKey, "trainer",
	)
	runLogger.Info("candidate evaluated", CandidateKey, "Ridge", R2ScoreKey, 0.87)

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	want := map[string]interface{}{
		RunIDKey:     "0b8f5c1e",
		ComponentKey: "trainer",
		CandidateKey: "Ridge",
		R2ScoreKey:   0.87,
	}
	for k, v := range want {
		if entries[0][k] != v {
			t.Errorf("field %s = %v, want %v", k, entries[0][k], v)
		}
	}
}

func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !testLogger.Enabled(ctx, LevelInfo) || !testLogger.Enabled(ctx, LevelError) {
		t.Error("Logger should be enabled for Info and Error")
	}
	if testLogger.Enabled(ctx, LevelDebug) {
		t.Error("Logger should not be enabled for Debug level")
	}

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	if testLogger.ContainsMessage("this should not appear") {
		t.Error("Debug message should not appear when level is Info")
	}
	if !testLogger.ContainsMessage("this should appear") {
		t.Error("Info message should appear when level is Info")
	}
}

func TestLoggerProviderIntegration(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("provider test message")
	provider.GetLoggerWithName("ingest").Info("named logger message")

	out := buffer.String()
	for _, want := range []string{"provider test message", "named logger message", `"ml.component":"ingest"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("suppressed")
	if strings.Contains(buffer.String(), "suppressed") {
		t.Error("SetLevel should apply to existing loggers")
	}
}

func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	const goroutines, perGoroutine = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger := testLogger.With("goroutine_id", id)
			for j := 0; j < perGoroutine; j++ {
				logger.Info(fmt.Sprintf("goroutine %d message %d", id, j), "message_id", j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != goroutines*perGoroutine {
		t.Errorf("Expected %d log entries, got %d", goroutines*perGoroutine, len(entries))
	}
}

func BenchmarkLogging(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)
	contextLogger := testLogger.With(ComponentKey, "predict")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		contextLogger.Info("benchmark message",
			"iteration", i,
			OperationKey, OperationPredict,
		)
	}
}
