package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/go-scribe/internal/media"
)

func TestLocalStore_Resolve(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	file := filepath.Join(base, "note.ogg")
	if err := os.WriteFile(file, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := media.NewLocalStore(base)

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "absolute path", ref: file, want: file},
		{name: "relative to base", ref: "note.ogg", want: file},
		{name: "file URL", ref: "file://" + file, want: file},
		{name: "missing file", ref: "gone.ogg", wantErr: true},
		{name: "directory", ref: base, wantErr: true},
		{name: "remote scheme", ref: "https://example.com/a.mp3", wantErr: true},
		{name: "empty", ref: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := store.Resolve(context.Background(), tt.ref)
			if tt.wantErr {
				if !errors.Is(err, media.ErrMediaNotFound) {
					t.Errorf("Resolve(%q) error = %v, want ErrMediaNotFound", tt.ref, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestLocalStore_ResolveRelativeToWorkingDir(t *testing.T) {
	// Not parallel: changes the working directory.
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "talk.mp3"), []byte("ID3"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	got, err := media.NewLocalStore("").Resolve(context.Background(), "talk.mp3")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Resolve() = %q, want an absolute path", got)
	}
	if got != filepath.Join(dir, "talk.mp3") {
		t.Errorf("Resolve() = %q, want %q", got, filepath.Join(dir, "talk.mp3"))
	}
}

func TestLocalStore_InjectedStatter(t *testing.T) {
	t.Parallel()

	store := media.NewLocalStore("/srv/media", media.WithStoreFileStatter(&mockStatter{size: 10}))
	got, err := store.Resolve(context.Background(), "u1/voice.ogg")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != filepath.Join("/srv/media", "u1", "voice.ogg") {
		t.Errorf("Resolve() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockStatter struct {
	size int64
	err  error
}

func (m *mockStatter) Stat(name string) (os.FileInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &mockFileInfo{size: m.size}, nil
}

type mockFileInfo struct {
	size int64
}

func (m *mockFileInfo) Name() string       { return "mock.ogg" }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return 0o644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }
