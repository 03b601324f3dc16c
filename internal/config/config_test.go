package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"omni-ingest/internal/fixedwidth"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no config file failed: %v", err)
	}
	if cfg.App.Name != "omni-ingest" {
		t.Errorf("app.name default wrong: %q", cfg.App.Name)
	}
	if cfg.Data.Year != "all" {
		t.Errorf("data.year default wrong: %q", cfg.Data.Year)
	}
	if cfg.Parser.OnMalformed != "skip" {
		t.Errorf("parser.on_malformed default wrong: %q", cfg.Parser.OnMalformed)
	}
	if cfg.ErrorMode() != fixedwidth.Skip {
		t.Errorf("default error mode should be skip")
	}
	if cfg.Export.MaxRows != 100000 {
		t.Errorf("export.max_rows default wrong: %d", cfg.Export.MaxRows)
	}
	if cfg.Metrics.Listen != ":9152" {
		t.Errorf("metrics.listen default wrong: %q", cfg.Metrics.Listen)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OMNIINGEST_DATA_DIR", "/env/data")
	t.Setenv("OMNIINGEST_DATABASE_DSN", "postgres://env-user@localhost/envdb")
	t.Setenv("OMNIINGEST_ALERTING_TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("OMNIINGEST_ALERTING_TELEGRAM_CHAT_ID", "env-chat")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Data.Dir != "/env/data" {
		t.Errorf("data.dir env not applied: %q", cfg.Data.Dir)
	}
	if cfg.Database.DSN != "postgres://env-user@localhost/envdb" {
		t.Errorf("database.dsn env not applied: %q", cfg.Database.DSN)
	}
	if cfg.Alerting.Telegram.BotToken != "env-token" {
		t.Errorf("telegram bot token env not applied: %q", cfg.Alerting.Telegram.BotToken)
	}
	if cfg.Alerting.Telegram.ChatID != "env-chat" {
		t.Errorf("telegram chat id env not applied: %q", cfg.Alerting.Telegram.ChatID)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
data:
  dir: /srv/omni
  year: "2005"
parser:
  on_malformed: halt
database:
  connect_timeout: 5s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Data.Dir != "/srv/omni" || cfg.Data.Year != "2005" {
		t.Errorf("data section not applied: %+v", cfg.Data)
	}
	if cfg.ErrorMode() != fixedwidth.Halt {
		t.Errorf("on_malformed halt not applied")
	}
	if cfg.Database.ConnectTimeout.Seconds() != 5 {
		t.Errorf("duration decode wrong: %v", cfg.Database.ConnectTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty data dir", func(c *Config) { c.Data.Dir = "" }, "data.dir"},
		{"bad year", func(c *Config) { c.Data.Year = "99" }, "data.year"},
		{"bad malformed policy", func(c *Config) { c.Parser.OnMalformed = "ignore" }, "on_malformed"},
		{"zero watch interval", func(c *Config) { c.Watch.Interval = 0 }, "watch.interval"},
		{"zero export rows", func(c *Config) { c.Export.MaxRows = 0 }, "max_rows"},
		{"negative alert pct", func(c *Config) { c.Alerting.MaxMalformedPct = -1 }, "max_malformed_pct"},
		{"telegram without token", func(c *Config) {
			c.Alerting.Telegram.Enabled = true
			c.Alerting.Telegram.ChatID = "123"
		}, "bot_token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestSchemaOverrides(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Parser.Columns = []ColumnOverride{
		{Name: fixedwidth.ColBzGSE, Sentinels: []string{"999.99"}},
		{Name: fixedwidth.ColFlowSpeed, Width: 9},
	}

	schema, err := cfg.Schema()
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if schema.TotalWidth() != 79 {
		t.Errorf("width override not applied: total %d", schema.TotalWidth())
	}

	for _, col := range schema.MeasurementColumns() {
		if col.Name == fixedwidth.ColBzGSE {
			if len(col.Sentinels) != 1 || col.Sentinels[0] != "999.99" {
				t.Errorf("sentinel override not applied: %+v", col.Sentinels)
			}
		}
	}
}

func TestSchemaUnknownColumn(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Parser.Columns = []ColumnOverride{{Name: "density"}}

	if _, err := cfg.Schema(); err == nil || !strings.Contains(err.Error(), "density") {
		t.Fatalf("unknown column should be rejected, got %v", err)
	}
}

func TestResolveMaxRows(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxRows: 42}}
	if got := cfg.ResolveMaxRows(0); got != 42 {
		t.Errorf("want config default 42, got %d", got)
	}
	if got := cfg.ResolveMaxRows(7); got != 7 {
		t.Errorf("want override 7, got %d", got)
	}
}
