package logger_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pcontext "github.com/poltergeist/phasebuild/pkg/context"
	"github.com/poltergeist/phasebuild/pkg/logger"
)

func TestCreateLogger(t *testing.T) {
	log := logger.CreateLogger("", "info")
	if log == nil {
		t.Fatal("expected logger to be created")
	}
}

func TestNewLogger_LogFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "phasebuild.log")

	log, err := logger.NewLogger(&buf, path, "info", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Warn("disk almost full")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "disk almost full") || !strings.Contains(buf.String(), "disk almost full") {
		t.Errorf("expected message in both outputs, file %q, output %q", data, buf.String())
	}

	if _, err := logger.NewLogger(&buf, filepath.Join(path, "nested", "x.log"), "info", true); err == nil {
		t.Error("expected an error for an unwritable log file")
	}
}

func TestLogger_WithTarget(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.WithTarget("build/concat").Info("running task")

	output := buf.String()
	if !strings.Contains(output, "[build/concat] running task") {
		t.Errorf("expected target prefix in log output, got %q", output)
	}
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Info("loaded",
		logger.WithField("zeta", 1),
		logger.WithField("alpha", "a"),
	)

	output := buf.String()
	if !strings.Contains(output, "{alpha=a, zeta=1}") {
		t.Errorf("expected sorted fields, got %q", output)
	}
}

func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("error", &buf)

	log.Debug("should not appear")
	log.Info("should not appear")
	log.Warn("should not appear")
	log.Error("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("lower level logs should not appear with error level")
	}
	if !strings.Contains(output, "ERROR: should appear") {
		t.Error("error level log should appear")
	}
}

func TestLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Success("build completed")

	if !strings.Contains(buf.String(), "build completed") {
		t.Error("expected success message in log output")
	}
}

func TestLogger_Discard(t *testing.T) {
	log := logger.Discard()
	log.Error("dropped")
	log.WithTarget("x").Info("dropped")
}

func TestLogger_Context(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	ctx := pcontext.WithBuildID(context.Background(), "build_1")
	ctx = pcontext.WithPhase(ctx, "compile")

	logger.WithContext(ctx, log).Info("phase started")

	output := buf.String()
	if !strings.Contains(output, "build_id=build_1") || !strings.Contains(output, "phase=compile") {
		t.Errorf("expected tracing fields, got %q", output)
	}
}

func TestConsoleLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	console := logger.NewConsoleLogger(&out, &errOut, true)

	console.Phase("build")
	console.Task("concat")
	console.Blank()
	console.TaskMessage(logger.MessageInfo, "3 files")
	console.TaskMessage(logger.MessageWarn, "missing file")
	console.TaskMessage(logger.MessageError, "cannot write")

	expected := "\n Running phase \"build\"\n   +Running task \"concat\"\n\n     (i) 3 files\n     (w) missing file\n"
	if out.String() != expected {
		t.Errorf("unexpected output:\n%q\nwant\n%q", out.String(), expected)
	}
	if errOut.String() != "     (e) cannot write\n" {
		t.Errorf("unexpected error output %q", errOut.String())
	}
}

func TestConsoleLogger_Errors(t *testing.T) {
	var out, errOut bytes.Buffer
	console := logger.NewConsoleLogger(&out, &errOut, true)

	first := errors.New("first")
	second := fmt.Errorf("wrapped: %w", errors.Join(errors.New("a"), errors.New("b")))
	console.Errors(errors.Join(first, second))

	expected := "(e) first\n(e) wrapped: a\n(e) b\n"
	if errOut.String() != expected {
		t.Errorf("unexpected output %q", errOut.String())
	}
}

func TestFlatten(t *testing.T) {
	a, b, c := errors.New("a"), errors.New("b"), errors.New("c")
	flat := logger.Flatten(errors.Join(a, errors.Join(b, c)))
	if len(flat) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(flat))
	}
	if logger.Flatten(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
