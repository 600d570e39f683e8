package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// Notes:
// - White-box testing (package config) to test internal parseFile function.
// - Uses t.TempDir() + t.Setenv("XDG_CONFIG_HOME") for I/O isolation.
// - Tests using t.Setenv are NOT parallel (incompatible with t.Parallel).
// - Pure functions (ResolveOutputPath, ExpandPath, Validate) use t.Parallel().
// - clearEnv blanks every SCRIBE_* variable so the host environment cannot
//   leak into Load.
//
// Coverage gaps (intentional):
// - os.UserHomeDir() failures in dir(), ExpandPath()
// - Write errors in writeFile() (disk full, permission denied mid-write)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeConfigFile creates a config file in the given directory.
func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

// clearEnv isolates a test from the caller's environment.
func clearEnv(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	for _, k := range Keys() {
		t.Setenv(k.Env, "")
	}
	return tmpDir
}

// ---------------------------------------------------------------------------
// TestResolveOutputPath - Pure function for output path resolution
// ---------------------------------------------------------------------------

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		output      string
		outputDir   string
		defaultName string
		want        string
	}{
		// Case 1: Absolute path - used as-is
		{
			name:        "absolute path ignores outputDir",
			output:      "/absolute/path/file.txt",
			outputDir:   "/some/dir",
			defaultName: "transcript.txt",
			want:        "/absolute/path/file.txt",
		},
		{
			name:        "absolute path with empty outputDir",
			output:      "/absolute/path/file.txt",
			outputDir:   "",
			defaultName: "transcript.txt",
			want:        "/absolute/path/file.txt",
		},

		// Case 2: Relative path with outputDir
		{
			name:        "relative path joined with outputDir",
			output:      "subdir/file.txt",
			outputDir:   "/base/dir",
			defaultName: "transcript.txt",
			want:        "/base/dir/subdir/file.txt",
		},
		{
			name:        "relative path without outputDir",
			output:      "subdir/file.txt",
			outputDir:   "",
			defaultName: "transcript.txt",
			want:        "subdir/file.txt",
		},
		{
			name:        "filename only with outputDir",
			output:      "file.txt",
			outputDir:   "/base/dir",
			defaultName: "transcript.txt",
			want:        "/base/dir/file.txt",
		},

		// Case 3: Empty output - uses defaultName
		{
			name:        "empty output uses defaultName with outputDir",
			output:      "",
			outputDir:   "/base/dir",
			defaultName: "transcript.txt",
			want:        "/base/dir/default.txt",
		},
		{
			name:        "empty output uses defaultName without outputDir",
			output:      "",
			outputDir:   "",
			defaultName: "transcript.txt",
			want:        "transcript.txt",
		},

		// Edge cases: path cleaning
		{
			name:        "cleans redundant separators",
			output:      "subdir//file.txt",
			outputDir:   "/base//dir",
			defaultName: "transcript.txt",
			want:        "/base/dir/subdir/file.txt",
		},
		{
			name:        "cleans dot segments",
			output:      "./subdir/../file.txt",
			outputDir:   "/base/./dir",
			defaultName: "transcript.txt",
			want:        "/base/dir/file.txt",
		},
		{
			name:        "handles trailing slash in outputDir",
			output:      "file.txt",
			outputDir:   "/base/dir/",
			defaultName: "transcript.txt",
			want:        "/base/dir/file.txt",
		},

		// Edge cases: special values
		{
			name:        "dot as output",
			output:      ".",
			outputDir:   "/base/dir",
			defaultName: "transcript.txt",
			want:        "/base/dir",
		},
		{
			name:        "dot-dot as output",
			output:      "..",
			outputDir:   "/base/dir",
			defaultName: "transcript.txt",
			want:        "/base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ResolveOutputPath(tt.output, tt.outputDir, tt.defaultName)
			if got != tt.want {
				t.Errorf("ResolveOutputPath(%q, %q, %q) = %q, want %q",
					tt.output, tt.outputDir, tt.defaultName, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExpandPath - Pure function for ~ expansion
// ---------------------------------------------------------------------------

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("cannot get home dir: %v", err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"expands tilde prefix", "~/Transcripts/a.txt", filepath.Join(home, "Transcripts/a.txt")},
		{"tilde alone expands to home", "~", home},
		{"no expansion for absolute path", "/absolute/path", "/absolute/path"},
		{"no expansion for relative path", "relative/path", "relative/path"},
		{"no expansion for tilde user", "~bob/x", "~bob/x"},
		{"no expansion for tilde in middle", "/path/~/file", "/path/~/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExpandPath(tt.path); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestLoad - Config loading with file, env and default precedence
// ---------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	// NO t.Parallel() - uses t.Setenv

	t.Run("returns defaults when file missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		want := Defaults()
		if cfg != want {
			t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
		}
	})

	t.Run("reads typed values from file", func(t *testing.T) {
		tmpDir := clearEnv(t)
		writeConfigFile(t, tmpDir, `# scribe
output-dir=/from/file
max-window=300
max-retries=0
retry-delay=250ms
parallel=4
refund-on-failure=true
provider=http
provider-url=http://localhost:9000/asr
redis-addr=localhost:6379
`)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.OutputDir != "/from/file" || cfg.MaxWindow != 300 || cfg.MaxRetries != 0 ||
			cfg.RetryDelay != 250*time.Millisecond || cfg.Parallel != 4 || !cfg.RefundOnFailure ||
			cfg.Provider != ProviderHTTP || cfg.ProviderURL != "http://localhost:9000/asr" ||
			cfg.RedisAddr != "localhost:6379" {
			t.Errorf("Load() = %+v", cfg)
		}
		if cfg.FallbackDuration != 300 || cfg.CallTimeout != 5*time.Minute {
			t.Errorf("unset keys lost their defaults: %+v", cfg)
		}
	})

	t.Run("falls back to env var when key missing from file", func(t *testing.T) {
		tmpDir := clearEnv(t)
		t.Setenv("SCRIBE_OUTPUT_DIR", "/from/env")
		t.Setenv("SCRIBE_LOCAL_CREDITS", "50")
		writeConfigFile(t, tmpDir, "other-key=other-value\n")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.OutputDir != "/from/env" || cfg.LocalCredits != 50 {
			t.Errorf("Load() = %+v, want env values", cfg)
		}
	})

	t.Run("file takes precedence over env var", func(t *testing.T) {
		tmpDir := clearEnv(t)
		t.Setenv("SCRIBE_OUTPUT_DIR", "/from/env")
		writeConfigFile(t, tmpDir, "output-dir=/from/file\n")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.OutputDir != "/from/file" {
			t.Errorf("OutputDir = %q, want %q (file should take precedence)", cfg.OutputDir, "/from/file")
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tmpDir := clearEnv(t)
		writeConfigFile(t, tmpDir, "max-window=-5\n")

		if _, err := Load(); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Load() error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("rejects invalid env values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCRIBE_PROVIDER", "whisper.cpp")

		if _, err := Load(); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Load() error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("returns error for invalid config syntax", func(t *testing.T) {
		tmpDir := clearEnv(t)
		writeConfigFile(t, tmpDir, "invalid-line-no-equals\n")

		if _, err := Load(); !errors.Is(err, ErrInvalidSyntax) {
			t.Errorf("Load() error = %v, want ErrInvalidSyntax", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestValidate - per-key parsing
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		value   string
		wantErr error
	}{
		{KeyMaxWindow, "600", nil},
		{KeyMaxWindow, "12.5", nil},
		{KeyMaxWindow, "0", ErrInvalidValue},
		{KeyMaxWindow, "ten", ErrInvalidValue},
		{KeyMaxRetries, "0", nil},
		{KeyMaxRetries, "-1", ErrInvalidValue},
		{KeyParallel, "0", ErrInvalidValue},
		{KeyRetryDelay, "2s", nil},
		{KeyRetryDelay, "2", ErrInvalidValue},
		{KeyCallTimeout, "-1m", ErrInvalidValue},
		{KeyOffsetMode, OffsetModeLastSegment, nil},
		{KeyOffsetMode, "segment", ErrInvalidValue},
		{KeyRefundOnFailure, "false", nil},
		{KeyRefundOnFailure, "maybe", ErrInvalidValue},
		{KeyProvider, ProviderOpenAI, nil},
		{KeyProvider, "azure", ErrInvalidValue},
		{KeyOutputDir, "anything", nil},
		{"no-such-key", "x", ErrUnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.key, tt.value)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeys_EnvPrefix(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, k := range Keys() {
		if seen[k.Name] {
			t.Errorf("duplicate key %q", k.Name)
		}
		seen[k.Name] = true
		if len(k.Env) < 7 || k.Env[:7] != "SCRIBE_" {
			t.Errorf("key %q env = %q, want SCRIBE_ prefix", k.Name, k.Env)
		}
		if k.Help == "" {
			t.Errorf("key %q has no help", k.Name)
		}
	}
}

// ---------------------------------------------------------------------------
// TestSave / TestGet / TestList - Config persistence
// ---------------------------------------------------------------------------

func TestSave(t *testing.T) {
	// NO t.Parallel() - uses t.Setenv

	t.Run("creates config file when missing", func(t *testing.T) {
		clearEnv(t)

		if err := Save(KeyOutputDir, "/new/path"); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.OutputDir != "/new/path" {
			t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "/new/path")
		}
	})

	t.Run("preserves other keys and sorts them", func(t *testing.T) {
		tmpDir := clearEnv(t)
		writeConfigFile(t, tmpDir, "parallel=2\n# dropped comment\n")

		if err := Save(KeyMaxWindow, "120"); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		data, err := os.ReadFile(filepath.Join(tmpDir, appName, "config"))
		if err != nil {
			t.Fatal(err)
		}
		if got, want := string(data), "max-window=120\nparallel=2\n"; got != want {
			t.Errorf("config file = %q, want %q", got, want)
		}
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		clearEnv(t)
		if err := Save("colour", "blue"); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("Save() error = %v, want ErrUnknownKey", err)
		}
	})

	t.Run("rejects invalid value without writing", func(t *testing.T) {
		tmpDir := clearEnv(t)
		if err := Save(KeyParallel, "lots"); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Save() error = %v, want ErrInvalidValue", err)
		}
		if _, err := os.Stat(filepath.Join(tmpDir, appName, "config")); !os.IsNotExist(err) {
			t.Error("config file written for an invalid value")
		}
	})
}

func TestGet(t *testing.T) {
	// NO t.Parallel() - uses t.Setenv

	tmpDir := clearEnv(t)
	writeConfigFile(t, tmpDir, "redis-addr=cache:6379\n")

	got, err := Get(KeyRedisAddr)
	if err != nil || got != "cache:6379" {
		t.Errorf("Get(redis-addr) = %q, %v", got, err)
	}
	got, err = Get(KeyLogFile)
	if err != nil || got != "" {
		t.Errorf("Get(log-file) = %q, %v, want empty", got, err)
	}
	if _, err := Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownKey", err)
	}
}

func TestList(t *testing.T) {
	// NO t.Parallel() - uses t.Setenv

	t.Run("empty when file missing", func(t *testing.T) {
		clearEnv(t)
		got, err := List()
		if err != nil || len(got) != 0 {
			t.Errorf("List() = %v, %v, want empty", got, err)
		}
	})

	t.Run("returns file values", func(t *testing.T) {
		tmpDir := clearEnv(t)
		writeConfigFile(t, tmpDir, "parallel=3\nprovider=http\n")
		got, err := List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 || got["parallel"] != "3" || got["provider"] != "http" {
			t.Errorf("List() = %v", got)
		}
	})
}

// ---------------------------------------------------------------------------
// TestEnsureOutputDir - Directory validation and creation
// ---------------------------------------------------------------------------

func TestEnsureOutputDir(t *testing.T) {
	t.Parallel()

	t.Run("accepts existing writable directory", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		if err := EnsureOutputDir(tmpDir); err != nil {
			t.Errorf("EnsureOutputDir(%q) = %v, want nil", tmpDir, err)
		}
		entries, _ := os.ReadDir(tmpDir)
		if len(entries) != 0 {
			t.Errorf("probe file left behind: %v", entries)
		}
	})

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()
		newDir := filepath.Join(t.TempDir(), "new", "nested", "dir")
		if err := EnsureOutputDir(newDir); err != nil {
			t.Fatalf("EnsureOutputDir(%q) = %v, want nil", newDir, err)
		}
		if info, err := os.Stat(newDir); err != nil || !info.IsDir() {
			t.Errorf("%q was not created as a directory", newDir)
		}
	})

	t.Run("rejects empty path", func(t *testing.T) {
		t.Parallel()
		if err := EnsureOutputDir(""); err == nil {
			t.Error("EnsureOutputDir(\"\") = nil, want error")
		}
	})

	t.Run("rejects file path", func(t *testing.T) {
		t.Parallel()
		filePath := filepath.Join(t.TempDir(), "file.txt")
		if err := os.WriteFile(filePath, []byte("content"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		if err := EnsureOutputDir(filePath); !errors.Is(err, ErrNotDirectory) {
			t.Errorf("EnsureOutputDir(%q) error = %v, want ErrNotDirectory", filePath, err)
		}
	})
}

func TestEnsureOutputDir_Permissions(t *testing.T) {
	// Skip on Windows where chmod behaves differently
	if runtime.GOOS == "windows" {
		t.Skip("skipping permission tests on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	readOnlyDir := filepath.Join(t.TempDir(), "readonly")
	if err := os.Mkdir(readOnlyDir, 0555); err != nil {
		t.Fatalf("failed to create readonly dir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(readOnlyDir, 0755) })

	if err := EnsureOutputDir(readOnlyDir); !errors.Is(err, ErrNotWritable) {
		t.Errorf("EnsureOutputDir(%q) error = %v, want ErrNotWritable", readOnlyDir, err)
	}
}

// ---------------------------------------------------------------------------
// TestParseFile - Internal parsing logic
// ---------------------------------------------------------------------------

func TestParseFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    map[string]string
		wantErr error
	}{
		{"key=value pairs", "key1=value1\nkey2=value2\n", map[string]string{"key1": "value1", "key2": "value2"}, nil},
		{"comments and blank lines", "# c\n\nkey=value\n  # indented\n", map[string]string{"key": "value"}, nil},
		{"trims whitespace", "  key  =  value  \n", map[string]string{"key": "value"}, nil},
		{"value with equals sign", "provider-url=http://h/?a=b\n", map[string]string{"provider-url": "http://h/?a=b"}, nil},
		{"empty value", "log-file=\n", map[string]string{"log-file": ""}, nil},
		{"invalid syntax", "invalid-line-without-equals\n", nil, ErrInvalidSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			configPath := filepath.Join(t.TempDir(), "config")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			got, err := parseFile(configPath)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("parseFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFile() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Errorf("parseFile() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}

	if _, err := parseFile("/nonexistent/path/config"); !os.IsNotExist(err) {
		t.Errorf("parseFile(missing) error = %v, want not-exist", err)
	}
}

// ---------------------------------------------------------------------------
// TestDir - Internal directory resolution
// ---------------------------------------------------------------------------

func TestDir(t *testing.T) {
	// NO t.Parallel() - uses t.Setenv

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		got, err := Dir()
		if err != nil {
			t.Fatalf("Dir() error = %v", err)
		}
		if want := "/custom/config/go-scribe"; got != want {
			t.Errorf("Dir() = %q, want %q", got, want)
		}
	})

	t.Run("uses home/.config when XDG not set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")

		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("cannot get home dir: %v", err)
		}
		got, err := Dir()
		if err != nil {
			t.Fatalf("Dir() error = %v", err)
		}
		if want := filepath.Join(home, ".config", "go-scribe"); got != want {
			t.Errorf("Dir() = %q, want %q", got, want)
		}
	})
}
