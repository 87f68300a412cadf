package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dirsync/internal/dirsync"
)

func TestManager_ReadWrite(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/dirsync",
		LogDir:  "/home/user/.local/share/dirsync/log",
		Sync: SyncConfig{
			Hash:           true,
			ConflictPolicy: "newer",
			JournalFile:    "sync.journal",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/dirsync/db"},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.log", ".git/"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Sync != original.Sync {
		t.Errorf("Sync = %+v, want %+v", got.Sync, original.Sync)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if len(got.Filesystem.Ignore) != 2 || got.Filesystem.Ignore[1] != ".git/" {
		t.Errorf("Filesystem.Ignore = %v, want %v", got.Filesystem.Ignore, original.Filesystem.Ignore)
	}
}

func TestManager_Read_InvalidTOML(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("log_dir = [")); err == nil {
		t.Error("Read() error = nil, want error")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/base")

	if cfg.LogDir != filepath.Join("/base", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != filepath.Join("/base", "db") {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Sync.JournalFile != dirsync.DefaultJournalFile {
		t.Errorf("Sync.JournalFile = %q, want %q", cfg.Sync.JournalFile, dirsync.DefaultJournalFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown conflict policy", func(c *Config) { c.Sync.ConflictPolicy = "left" }},
		{"unknown database type", func(c *Config) { c.Database.Type = "postgres" }},
		{"sqlite without data dir", func(c *Config) { c.Database.DataDir = "" }},
		{"empty log dir", func(c *Config) { c.LogDir = "" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig("/base")
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		t.Parallel()
		base := t.TempDir()
		cfg, err := LoadOrDefault(filepath.Join(base, "missing.toml"), base)
		if err != nil {
			t.Fatalf("LoadOrDefault() error = %v", err)
		}
		if cfg.LogDir != filepath.Join(base, "log") {
			t.Errorf("LogDir = %q, want default", cfg.LogDir)
		}
	})

	t.Run("file values override defaults and absent keys keep them", func(t *testing.T) {
		t.Parallel()
		base := t.TempDir()
		path := filepath.Join(base, "dirsync.toml")
		content := "[sync]\nhash = true\n\n[database]\ntype = \"memory\"\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		cfg, err := LoadOrDefault(path, base)
		if err != nil {
			t.Fatalf("LoadOrDefault() error = %v", err)
		}
		if !cfg.Sync.Hash {
			t.Error("Sync.Hash = false, want true")
		}
		if cfg.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want memory", cfg.Database.Type)
		}
		if cfg.Sync.JournalFile != dirsync.DefaultJournalFile {
			t.Errorf("Sync.JournalFile = %q, want default", cfg.Sync.JournalFile)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		t.Parallel()
		base := t.TempDir()
		path := filepath.Join(base, "dirsync.toml")
		if err := os.WriteFile(path, []byte("[sync]\nconflict_policy = \"coin-flip\"\n"), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if _, err := LoadOrDefault(path, base); err == nil {
			t.Error("LoadOrDefault() error = nil, want error")
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("writes a readable config", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "dirsync.toml")
		if err := Init(path, NewConfig("/base")); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		cfg, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if cfg.BaseDir != "/base" {
			t.Errorf("BaseDir = %q, want /base", cfg.BaseDir)
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "dirsync.toml")
		if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if err := Init(path, NewConfig("/base")); err == nil {
			t.Error("Init() error = nil, want error")
		}
		data, _ := os.ReadFile(path)
		if string(data) != "# mine\n" {
			t.Errorf("existing config modified: %q", data)
		}
	})
}
