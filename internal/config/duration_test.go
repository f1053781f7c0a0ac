package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestParseHumanDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"single hour", "1hour", time.Hour, false},
		{"combined", "1day 7hours 43min", 24*time.Hour + 7*time.Hour + 43*time.Minute, false},
		{"plural forms", "2days 3mins 5secs", 2*24*time.Hour + 3*time.Minute + 5*time.Second, false},
		{"no spaces", "1day7hours", 24*time.Hour + 7*time.Hour, false},
		{"empty", "", 0, true},
		{"garbage", "not a duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHumanDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseHumanDuration(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHumanDuration(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseHumanDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRuntimeFlagAcceptsHumanDuration(t *testing.T) {
	fs := pflag.NewFlagSet("ingest", pflag.ContinueOnError)
	RegisterIngestFlags(fs)

	if err := fs.Parse([]string{"--runtime", "1day 7hours 43min"}); err != nil {
		t.Fatalf("parsing --runtime: %v", err)
	}

	cfg, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := 24*time.Hour + 7*time.Hour + 43*time.Minute
	if cfg.Runtime != want {
		t.Fatalf("cfg.Runtime = %v, want %v", cfg.Runtime, want)
	}
}
