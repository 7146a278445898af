package logging

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestNewWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithLogger(log.New(&buf, "", 0), 0).WithName("forecast")

	logger.Info("prediction served", "points", 24)
	logger.V(1).Info("parsed upload")
	logger.Error(errors.New("boom"), "prediction failed")

	out := buf.String()
	if !strings.Contains(out, `forecast: "level"=0 "msg"="prediction served" "points"=24`) {
		t.Errorf("unexpected info line in %q", out)
	}
	if strings.Contains(out, "parsed upload") {
		t.Errorf("V(1) message should be discarded at verbosity 0: %q", out)
	}
	if !strings.Contains(out, `"error"="boom"`) {
		t.Errorf("expected error in output %q", out)
	}
}

func TestVerbosityEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithLogger(log.New(&buf, "", 0), 1)

	logger.V(1).Info("parsed upload", "observations", 72)

	if !strings.Contains(buf.String(), `"msg"="parsed upload"`) {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}
