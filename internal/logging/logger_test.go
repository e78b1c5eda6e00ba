package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   LogLevel
	}{
		{
			name: "default config",
			config: Config{
				Level:  LogLevelNormal,
				Format: "text",
			},
			want: LogLevelNormal,
		},
		{
			name: "verbose config",
			config: Config{
				Level:  LogLevelVerbose,
				Format: "json",
			},
			want: LogLevelVerbose,
		},
		{
			name: "quiet config",
			config: Config{
				Level:  LogLevelQuiet,
				Format: "text",
			},
			want: LogLevelQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			if err != nil {
				t.Errorf("NewLogger() error = %v", err)
				return
			}

			if logger.GetLevel() != tt.want {
				t.Errorf("NewLogger() level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	if logger == nil {
		t.Error("NewDefaultLogger() returned nil")
	}

	if logger.GetLevel() != LogLevelNormal {
		t.Errorf("NewDefaultLogger() level = %v, want %v", logger.GetLevel(), LogLevelNormal)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	fields := map[string]interface{}{
		"test_field": "test_value",
		"number":     42,
	}

	logger.WithFields(fields).Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test_field=test_value") {
		t.Errorf("Expected output to contain test_field=test_value, got: %s", output)
	}
	if !strings.Contains(output, "number=42") {
		t.Errorf("Expected output to contain number=42, got: %s", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestLogDatabaseConnection(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	// Test successful connection
	logger.LogDatabaseConnection("localhost", "testdb", true, 100*time.Millisecond, nil)
	output := buf.String()
	if !strings.Contains(output, "Database connection established") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "host=localhost") {
		t.Errorf("Expected host=localhost, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	// Test failed connection
	testErr := errors.New("connection timeout")
	logger.LogDatabaseConnection("localhost", "testdb", false, 5*time.Second, testErr)
	output = buf.String()
	if !strings.Contains(output, "Database connection failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "connection timeout") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestLogSchemaDump(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogSchemaDump("acme", 42, 200*time.Millisecond, nil)
	output := buf.String()
	if !strings.Contains(output, "Schema dump completed") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "tenant_id=acme") {
		t.Errorf("Expected tenant_id=acme, got: %s", output)
	}
	if !strings.Contains(output, "job_id=42") {
		t.Errorf("Expected job_id=42, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	logger.LogSchemaDump("acme", 42, 50*time.Millisecond, errors.New("pg_dump exited with status 1"))
	output = buf.String()
	if !strings.Contains(output, "Schema dump failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "pg_dump exited with status 1") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestLogArtifactUpload(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogArtifactUpload("acme", 42, "s3://backups/tenants/acme/jobs/42/schema.sql.gz", 1024, 300*time.Millisecond, nil)
	output := buf.String()
	if !strings.Contains(output, "Artifact upload completed") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "size_bytes=1024") {
		t.Errorf("Expected size_bytes=1024, got: %s", output)
	}
	if !strings.Contains(output, "s3://backups/tenants/acme/jobs/42/schema.sql.gz") {
		t.Errorf("Expected artifact location, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	logger.LogArtifactUpload("acme", 42, "", 0, 300*time.Millisecond, errors.New("bucket unreachable"))
	output = buf.String()
	if !strings.Contains(output, "Artifact upload failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "bucket unreachable") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestLogJobTransition(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogJobTransition(7, "globex", "pending", "running")
	output := buf.String()
	if !strings.Contains(output, "Backup job transitioned") {
		t.Errorf("Expected transition message, got: %s", output)
	}
	if !strings.Contains(output, "from=pending") {
		t.Errorf("Expected from=pending, got: %s", output)
	}
	if !strings.Contains(output, "to=running") {
		t.Errorf("Expected to=running, got: %s", output)
	}
}

func TestLogSweep(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogSweep("sweep-1", 3, 3, 0, 80*time.Millisecond)
	output := buf.String()
	if !strings.Contains(output, "Scheduler sweep completed") {
		t.Errorf("Expected sweep message, got: %s", output)
	}
	if !strings.Contains(output, "triggered=3") {
		t.Errorf("Expected triggered=3, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	// Partial failure is a warning
	logger.LogSweep("sweep-2", 3, 2, 1, 80*time.Millisecond)
	output = buf.String()
	if !strings.Contains(output, "Scheduler sweep completed with failures") {
		t.Errorf("Expected failure warning, got: %s", output)
	}
	if !strings.Contains(output, "failed=1") {
		t.Errorf("Expected failed=1, got: %s", output)
	}
}

func TestLogScheduleProvisioning(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogScheduleProvisioning("acme", "premium", 3, nil)
	output := buf.String()
	if !strings.Contains(output, "Schedules provisioned") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "tier_id=premium") {
		t.Errorf("Expected tier_id=premium, got: %s", output)
	}
	if !strings.Contains(output, "provisioned=3") {
		t.Errorf("Expected provisioned=3, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	logger.LogScheduleProvisioning("acme", "trial", 0, errors.New("retention policy trial not found"))
	output = buf.String()
	if !strings.Contains(output, "Schedule provisioning failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "retention policy trial not found") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestSetLevel(t *testing.T) {
	logger := NewDefaultLogger()

	logger.SetLevel(LogLevelVerbose)
	if logger.GetLevel() != LogLevelVerbose {
		t.Errorf("SetLevel() failed, got %v, want %v", logger.GetLevel(), LogLevelVerbose)
	}

	logger.SetLevel(LogLevelQuiet)
	if logger.GetLevel() != LogLevelQuiet {
		t.Errorf("SetLevel() failed, got %v, want %v", logger.GetLevel(), LogLevelQuiet)
	}
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	fields := map[string]interface{}{
		"tenant_id": "acme",
		"job_id":    42,
	}

	finishFunc := logger.LogOperationStart("backup_pipeline", fields)

	// Check start message
	output := buf.String()
	if !strings.Contains(output, "Operation started") {
		t.Errorf("Expected start message, got: %s", output)
	}
	if !strings.Contains(output, "tenant_id=acme") {
		t.Errorf("Expected tenant_id=acme, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	// Test successful completion
	finishFunc(nil)
	output = buf.String()
	if !strings.Contains(output, "Operation completed") {
		t.Errorf("Expected completion message, got: %s", output)
	}
	if !strings.Contains(output, "success=true") {
		t.Errorf("Expected success=true, got: %s", output)
	}

	// Reset buffer
	buf.Reset()

	// Test failed completion
	finishFunc2 := logger.LogOperationStart("backup_pipeline_2", fields)
	buf.Reset() // Clear start message

	testErr := errors.New("operation failed")
	finishFunc2(testErr)
	output = buf.String()
	if !strings.Contains(output, "Operation failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "success=false") {
		t.Errorf("Expected success=false, got: %s", output)
	}
	if !strings.Contains(output, "operation failed") {
		t.Errorf("Expected error message, got: %s", output)
	}
}
