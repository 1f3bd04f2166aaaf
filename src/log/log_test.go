package log_test

import (
	"testing"

	"github.com/go-logr/logr/funcr"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		dev     bool
		wantErr bool
	}{
		{name: "debug development", level: "debug", dev: true},
		{name: "info production", level: "info"},
		{name: "unknown level", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := log.Setup(tt.level, tt.dev)
			if (err != nil) != tt.wantErr {
				t.Errorf("Setup(%q, %v) error = %v, wantErr %v", tt.level, tt.dev, err, tt.wantErr)
			}
		})
	}
}

func TestDebugUsesVerbosityOne(t *testing.T) {
	prev := log.Logger()
	defer log.SetLogger(prev)

	var lines []string
	log.SetLogger(funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 0}))

	log.Debug("hidden")
	log.Info("shown", "k", 1)

	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(lines), lines)
	}
}
