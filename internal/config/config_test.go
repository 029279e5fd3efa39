package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

// useConfigHome points XDG_CONFIG_HOME at a fresh temp dir for the test.
func useConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DIRMCP_DIRECTORY", "DIRMCP_MAX_FILE_SIZE", "DIRMCP_HTTP_ADDR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestConfigPath(t *testing.T) {
	home := useConfigHome(t)

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath failed: %v", err)
	}

	expected := filepath.Join(home, "dirmcp", "config.yaml")
	if path != expected {
		t.Errorf("Expected config path %s, got %s", expected, path)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	originalConfig := Config{
		Directory:   "/test/files",
		MaxFileSize: 2048,
		HTTPAddr:    "127.0.0.1:9000",
		Version:     "1.0",
		InitTime:    time.Now().Unix(),
	}

	if err := originalConfig.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %s", err)
	}

	loadedConfig, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %s", err)
	}

	if *loadedConfig != originalConfig {
		t.Errorf("Config mismatch: expected %+v, got %+v", originalConfig, *loadedConfig)
	}
}

func TestLoadFromKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("directory: /srv/files\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.Directory != "/srv/files" {
		t.Errorf("Directory = %q", cfg.Directory)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d, want default %d", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("HTTPAddr = %q, want default %q", cfg.HTTPAddr, DefaultHTTPAddr)
	}
}

func TestLoadFromEmptyFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("empty config file should load: %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %q, want %q", cfg.Version, CurrentVersion)
	}
}

func TestLoadPrecedence(t *testing.T) {
	home := useConfigHome(t)
	clearEnv(t)

	configPath := filepath.Join(home, "dirmcp", "config.yaml")
	fileCfg := Config{Directory: "/from/file", MaxFileSize: 100, HTTPAddr: "127.0.0.1:1111", Version: "1.0"}
	if err := fileCfg.SaveTo(configPath); err != nil {
		t.Fatal(err)
	}

	t.Run("file only", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Directory != "/from/file" || cfg.MaxFileSize != 100 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DIRMCP_DIRECTORY", "/from/env")
		t.Setenv("DIRMCP_MAX_FILE_SIZE", "4096")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Directory != "/from/env" {
			t.Errorf("Directory = %q, want /from/env", cfg.Directory)
		}
		if cfg.MaxFileSize != 4096 {
			t.Errorf("MaxFileSize = %d, want 4096", cfg.MaxFileSize)
		}
		if cfg.HTTPAddr != "127.0.0.1:1111" {
			t.Errorf("HTTPAddr = %q, want value from file", cfg.HTTPAddr)
		}
	})

	t.Run("invalid environment value", func(t *testing.T) {
		t.Setenv("DIRMCP_MAX_FILE_SIZE", "lots")

		if _, err := Load(""); err == nil {
			t.Error("Load should fail on a non-numeric size")
		}
	})
}

func TestLoadWithoutFile(t *testing.T) {
	useConfigHome(t)
	clearEnv(t)
	t.Setenv("DIRMCP_DIRECTORY", "/env/only")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a file should succeed: %v", err)
	}
	if cfg.Directory != "/env/only" {
		t.Errorf("Directory = %q", cfg.Directory)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d, want default", cfg.MaxFileSize)
	}
}

func TestLoadExplicitPathMissing(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail when an explicit config path is missing")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		directory   string
		expectError bool
		errorText   string
	}{
		{"existing directory", dir, false, ""},
		{"empty", "", true, "not configured"},
		{"missing", filepath.Join(dir, "missing"), true, "does not exist"},
		{"regular file", file, true, "not a directory"},
	}

	if runtime.GOOS == "linux" {
		tests = append(tests, struct {
			name        string
			directory   string
			expectError bool
			errorText   string
		}{"reserved", "/etc", true, "reserved"})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Directory: tt.directory}
			err := cfg.Validate()

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("Expected error containing %q, got: %v", tt.errorText, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if cfg.MaxFileSize != DefaultMaxFileSize || cfg.HTTPAddr != DefaultHTTPAddr {
				t.Errorf("Validate should fill defaults, got %+v", cfg)
			}
		})
	}
}

func TestValidateMakesDirectoryAbsolute(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.Mkdir("files", 0755); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Directory: "files"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !filepath.IsAbs(cfg.Directory) {
		t.Errorf("Directory should be absolute, got %q", cfg.Directory)
	}
}

func TestConfigInitTime(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	config := Config{
		Directory: "/test",
		Version:   "1.0",
	}

	before := time.Now().Unix()
	if err := config.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %s", err)
	}
	after := time.Now().Unix()

	if config.InitTime < before || config.InitTime > after {
		t.Errorf("InitTime %d should be between %d and %d", config.InitTime, before, after)
	}
}

func TestConfigFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	configPath := filepath.Join(t.TempDir(), "config.yaml")

	config := DefaultConfig()
	if err := config.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %s", err)
	}

	fileInfo, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat config file: %s", err)
	}

	if mode := fileInfo.Mode(); mode&0077 != 0 {
		t.Errorf("Config file should not be readable by group/others, got mode %o", mode)
	}
}

func TestCreateNewConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := CreateNewConfig(dir, configPath)
	if err != nil {
		t.Fatalf("CreateNewConfig failed: %v", err)
	}
	if cfg.InitTime == 0 {
		t.Error("InitTime should be set on save")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Directory != cfg.Directory {
		t.Errorf("Directory = %q, want %q", loaded.Directory, cfg.Directory)
	}

	if _, err := CreateNewConfig(filepath.Join(dir, "missing"), configPath); err == nil {
		t.Error("CreateNewConfig should reject a missing directory")
	}
}

func TestConfigErrorHandling(t *testing.T) {
	t.Run("load non-existent file", func(t *testing.T) {
		_, err := LoadFrom("/non/existent/file.yaml")
		if err == nil {
			t.Error("Should error when loading non-existent file")
		}
	})

	t.Run("load invalid YAML", func(t *testing.T) {
		invalidFile := filepath.Join(t.TempDir(), "invalid.yaml")
		os.WriteFile(invalidFile, []byte("invalid: yaml: content: ["), 0644)

		_, err := LoadFrom(invalidFile)
		if err == nil {
			t.Error("Should error when loading invalid YAML")
		}
	})
}
