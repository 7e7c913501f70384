package main

import (
	"testing"
	"time"

	"github.com/FriedrichWeinmann/sendping/internal/config"
	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/FriedrichWeinmann/sendping/internal/export"
)

// parsed runs the flag parser so opts carries the same defaults as a real invocation.
func parsed(t *testing.T, args ...string) (*options, func(string) bool) {
	t.Helper()
	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return opts, cmd.Flags().Changed
}

func intPtr(v int) *int { return &v }

func TestBuildSettingsDefaults(t *testing.T) {
	opts, changed := parsed(t)

	s, err := buildSettings([]string{"example.com"}, opts, changed, config.Config{})
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}

	req := s.run.Requests[0]
	if req.Count != 1 || req.Timeout != 3*time.Second || req.Delay != 0 {
		t.Fatalf("unexpected defaults %+v", req)
	}
	if req.SoundPolicy != domain.SoundSilent || req.SoundThreshold != domain.DefaultSoundThreshold {
		t.Fatalf("unexpected sound defaults %+v", req)
	}
	if s.run.Format != domain.FormatRaw {
		t.Fatalf("expected raw format, got %s", s.run.Format)
	}
	if s.influx.Enabled() {
		t.Fatalf("export must be off by default")
	}
}

func TestBuildSettingsContinuous(t *testing.T) {
	opts, changed := parsed(t, "-t")

	s, err := buildSettings([]string{"example.com"}, opts, changed, config.Config{})
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}
	req := s.run.Requests[0]
	if !req.Unbounded() || !req.Announce || req.Delay != time.Second {
		t.Fatalf("unexpected continuous options %+v", req)
	}
}

func TestBuildSettingsUnit(t *testing.T) {
	opts, changed := parsed(t, "--unit", "s", "--timeout", "2", "--wait", "1")

	s, err := buildSettings([]string{"example.com"}, opts, changed, config.Config{})
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}
	req := s.run.Requests[0]
	if req.Timeout != 2*time.Second || req.Delay != time.Second {
		t.Fatalf("unexpected durations timeout=%v wait=%v", req.Timeout, req.Delay)
	}

	opts, changed = parsed(t, "--unit", "s", "--wait", "2")
	s, err = buildSettings([]string{"example.com"}, opts, changed, config.Config{})
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}
	req = s.run.Requests[0]
	if req.Timeout != domain.DefaultTimeout || req.Delay != 2*time.Second {
		t.Fatalf("default timeout must not follow --unit, got timeout=%v wait=%v", req.Timeout, req.Delay)
	}

	opts, changed = parsed(t, "--unit", "s")
	s, err = buildSettings([]string{"example.com"}, opts, changed, config.Config{TimeoutMs: 500})
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}
	if got := s.run.Requests[0].Timeout; got != 500*time.Millisecond {
		t.Fatalf("file timeout is in milliseconds whatever --unit says, got %v", got)
	}

	opts, changed = parsed(t, "--unit", "h")
	if _, err := buildSettings([]string{"example.com"}, opts, changed, config.Config{}); err == nil {
		t.Fatalf("expected unknown unit error")
	}
}

func TestBuildSettingsFileDefaults(t *testing.T) {
	file := config.Config{
		Count:          7,
		TimeoutMs:      250,
		WaitMs:         intPtr(100),
		Sound:          string(domain.SoundAlwaysOnFailure),
		SoundThreshold: intPtr(-1),
		Format:         "json",
		Parallel:       3,
		Size:           56,
		Influx:         export.InfluxConfig{URL: "http://file:8086", Org: "lab", Bucket: "pings"},
	}
	opts, changed := parsed(t, "--count", "2", "--influx-url", "http://flag:8086")

	s, err := buildSettings([]string{"a.example", "b.example"}, opts, changed, file)
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}

	if len(s.run.Requests) != 2 {
		t.Fatalf("expected one request per target, got %d", len(s.run.Requests))
	}
	req := s.run.Requests[1]
	if req.Target != "b.example" {
		t.Fatalf("unexpected target order %s", req.Target)
	}
	if req.Count != 2 {
		t.Fatalf("flag must override file count, got %d", req.Count)
	}
	if req.Timeout != 250*time.Millisecond || req.Delay != 100*time.Millisecond {
		t.Fatalf("file durations not applied: %v %v", req.Timeout, req.Delay)
	}
	if req.SoundPolicy != domain.SoundAlwaysOnFailure || req.SoundThreshold != -1 {
		t.Fatalf("file sound settings not applied: %+v", req)
	}
	if s.run.Format != domain.FormatJSON || s.run.Parallel != 3 || s.prober.Size != 56 {
		t.Fatalf("file settings not applied: %+v %+v", s.run, s.prober)
	}
	if s.influx.URL != "http://flag:8086" || s.influx.Bucket != "pings" {
		t.Fatalf("influx flags must merge over the file, got %+v", s.influx)
	}
}

func TestBuildSettingsFormatFlagWins(t *testing.T) {
	opts, changed := parsed(t, "--raw")
	s, err := buildSettings([]string{"example.com"}, opts, changed, config.Config{Format: "json"})
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}
	if s.run.Format != domain.FormatRaw {
		t.Fatalf("expected raw format, got %s", s.run.Format)
	}
}

func TestBuildSettingsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "negative count", args: []string{"--count=-3"}},
		{name: "negative timeout", args: []string{"--timeout=-1"}},
		{name: "unknown sound", args: []string{"--sound", "loud"}},
		{name: "negative wait", args: []string{"--wait=-5"}},
		{name: "payload below minimum", args: []string{"--size", "10"}},
		{name: "unknown verbosity", args: []string{"--verbosity", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, changed := parsed(t, tt.args...)
			if _, err := buildSettings([]string{"example.com"}, opts, changed, config.Config{}); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}

func TestBuildSettingsRejectsInvalidFileValues(t *testing.T) {
	tests := []struct {
		name string
		file config.Config
	}{
		{name: "unknown format", file: config.Config{Format: "xml"}},
		{name: "unknown verbosity", file: config.Config{Verbosity: "chatty"}},
		{name: "payload below minimum", file: config.Config{Size: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, changed := parsed(t)
			if _, err := buildSettings([]string{"example.com"}, opts, changed, tt.file); err == nil {
				t.Fatalf("expected error for %+v", tt.file)
			}
		})
	}
}
