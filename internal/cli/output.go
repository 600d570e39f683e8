package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/transcript"
)

// deriveOutputPath converts a media file path to a transcript path.
// Example: "session.ogg" -> "session.txt"
func deriveOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".txt"
}

// renderTranscript formats t for path: JSON with segments for .json,
// plain text otherwise.
func renderTranscript(path string, t transcript.Transcript) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if t.Segments == nil {
			t.Segments = []transcript.Segment{}
		}
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode transcript: %w", err)
		}
		return string(data) + "\n", nil
	}
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return "", nil
	}
	return text + "\n", nil
}

// prepareOutput fails before any credit is spent when the transcript could
// not be written to path. A missing parent directory is created.
func prepareOutput(path string) error {
	if err := checkOutputFree(path); err != nil {
		return err
	}
	if err := config.EnsureOutputDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("output %s: %w", path, err)
	}
	return nil
}

// checkOutputFree fails early when path exists, before any credit is spent.
func checkOutputFree(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrOutputExists)
	}
	return nil
}

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}
