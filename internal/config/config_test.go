package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "/tmp/biblio/test.db"
  driver: sqlite
corpus:
  roots: ["/data/papers"]
  delimiter: "#"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != "/tmp/biblio/test.db" || cfg.Storage.Driver != "sqlite" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Corpus.Delimiter != "#" {
		t.Errorf("delimiter = %q, want #", cfg.Corpus.Delimiter)
	}
	if len(cfg.Corpus.Roots) != 1 || cfg.Corpus.Roots[0] != "/data/papers" {
		t.Errorf("roots = %v", cfg.Corpus.Roots)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("corpus: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/corpus.db"
log:
  file: "./logs/biblio.log"
corpus:
  roots: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "corpus.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantLog := filepath.Join(dir, "logs", "biblio.log")
	if cfg.Log.File != wantLog {
		t.Errorf("log file = %s, want %s", cfg.Log.File, wantLog)
	}
	if len(cfg.Corpus.Roots) != 1 {
		t.Fatalf("corpus roots: got %d", len(cfg.Corpus.Roots))
	}
	wantRoot := filepath.Join(dir, "dev", "sample")
	if cfg.Corpus.Roots[0] != wantRoot {
		t.Errorf("corpus root = %s, want %s", cfg.Corpus.Roots[0], wantRoot)
	}
}

func TestExpandPath_homeRelative(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := expandPath("papers", "/etc/biblio")
	if want := filepath.Join(home, "papers"); got != want {
		t.Errorf("expandPath = %s, want %s", got, want)
	}
	if got := expandPath("/abs/papers", "/etc/biblio"); got != "/abs/papers" {
		t.Errorf("absolute path changed: %s", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite3" {
		t.Errorf("default driver: got %s", cfg.Storage.Driver)
	}
	if cfg.Corpus.Delimiter != "$" {
		t.Errorf("default delimiter: got %q", cfg.Corpus.Delimiter)
	}
	if cfg.Query.DefaultColumn != "content" || cfg.Query.DefaultIDs != "%" {
		t.Errorf("query defaults: got %+v", cfg.Query)
	}
	if len(cfg.Corpus.Extensions) != len(DefaultExtensions) || cfg.Corpus.Extensions[0] != ".pdf" {
		t.Errorf("corpus extensions: got %v", cfg.Corpus.Extensions)
	}
	if !cfg.Corpus.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
	if cfg.Watch.DebounceMs != 2000 {
		t.Errorf("debounce: got %d", cfg.Watch.DebounceMs)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 28 {
		t.Errorf("log rotation defaults: got %+v", cfg.Log)
	}
}

func TestApplyDefaults_keepsEmptyExtensionList(t *testing.T) {
	cfg := &Config{Corpus: CorpusConfig{Extensions: []string{}}}
	ApplyDefaults(cfg)
	if len(cfg.Corpus.Extensions) != 0 {
		t.Errorf("explicit empty extension list should mean all files, got %v", cfg.Corpus.Extensions)
	}
}

func TestCorpusConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		c := &CorpusConfig{}
		if got := c.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		c := &CorpusConfig{Recursive: &f}
		if got := c.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Corpus.Roots = []string{"/tmp/papers"}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if len(loaded.Corpus.Roots) != 1 || loaded.Corpus.Roots[0] != "/tmp/papers" {
		t.Errorf("loaded roots: got %v", loaded.Corpus.Roots)
	}
}
