package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  environment: test\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Output.Path != "site/positions.json" {
		t.Fatalf("output.path = %q", cfg.Output.Path)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Fatalf("scheduler.interval = %s", cfg.Scheduler.Interval)
	}
	if !cfg.Ephemeris.ComputeSpeed || cfg.Ephemeris.MinYear != 1800 || cfg.Ephemeris.MaxYear != 2050 {
		t.Fatalf("unexpected ephemeris defaults: %+v", cfg.Ephemeris)
	}
	if cfg.Logging.Output != "stderr" {
		t.Fatalf("logging.output = %q", cfg.Logging.Output)
	}
	if cfg.App.Environment != "test" {
		t.Fatalf("app.environment = %q", cfg.App.Environment)
	}
	if !cfg.EventEnabled("ingress") || !cfg.EventEnabled("STATION") {
		t.Fatalf("default events missing: %v", cfg.Alerting.Events)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
output:
  path: public/now.json
  indent: "  "
scheduler:
  interval: 15m
alerting:
  events: [ingress]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Output.Path != "public/now.json" || cfg.Output.Indent != "  " {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Fatalf("interval = %s", cfg.Scheduler.Interval)
	}
	if cfg.EventEnabled("station") {
		t.Fatal("station should be disabled")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ZODIACSNAP_OUTPUT_PATH", "env/positions.json")
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Output.Path != "env/positions.json" {
		t.Fatalf("output.path = %q", cfg.Output.Path)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Output:    OutputConfig{Path: "site/positions.json"},
			Ephemeris: EphemerisConfig{MinYear: 1800, MaxYear: 2050},
			Scheduler: SchedulerConfig{Interval: time.Hour},
			Export:    ExportConfig{MaxDataPoints: 10},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *Config){
		"empty path":     func(c *Config) { c.Output.Path = " " },
		"inverted years": func(c *Config) { c.Ephemeris.MinYear, c.Ephemeris.MaxYear = 2000, 1900 },
		"min year early": func(c *Config) { c.Ephemeris.MinYear = 1500 },
		"max year late":  func(c *Config) { c.Ephemeris.MaxYear = 2300 },
		"zero interval":  func(c *Config) { c.Scheduler.Interval = 0 },
		"zero points":    func(c *Config) { c.Export.MaxDataPoints = 0 },
		"unknown event":  func(c *Config) { c.Alerting.Events = []string{"eclipse"} },
		"telegram token": func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
		"telegram chat":  func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, BotToken: "t"} },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := &Config{Output: OutputConfig{Path: "a.json"}, Export: ExportConfig{MaxDataPoints: 5}}
	if cfg.ResolveOutputPath("") != "a.json" || cfg.ResolveOutputPath("b.json") != "b.json" {
		t.Fatal("ResolveOutputPath mismatch")
	}
	if cfg.ResolveMaxPoints(0) != 5 || cfg.ResolveMaxPoints(9) != 9 {
		t.Fatal("ResolveMaxPoints mismatch")
	}
}
