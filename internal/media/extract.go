package media

import (
	"context"
	"fmt"
	"path/filepath"
)

// Extractor cuts windows out of a media file with FFmpeg.
type Extractor struct {
	ffmpegPath string
	cmd        commandRunner
	statter    fileStatter
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorFileStatter sets the statter used to verify chunk output.
func WithExtractorFileStatter(s fileStatter) ExtractorOption {
	return func(e *Extractor) { e.statter = s }
}

// NewExtractor creates an Extractor that runs ffmpegPath through cmd.
func NewExtractor(ffmpegPath string, cmd commandRunner, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath: ffmpegPath,
		cmd:        cmd,
		statter:    osFileStatter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkPath returns where Extract writes window w inside dir.
func ChunkPath(dir string, w Window) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%03d.ogg", w.Index))
}

// Extract writes [w.Start, w.End) of src to a new file in dir.
// The chunk is re-encoded so that cuts are sample-accurate regardless of the
// source container's keyframes. Overwrites an earlier partial attempt.
func (e *Extractor) Extract(ctx context.Context, src string, w Window, dir string) (ChunkArtifact, error) {
	out := ChunkPath(dir, w)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", src,
		"-ss", formatFFmpegTime(w.Start),
		"-to", formatFFmpegTime(w.End),
	}
	args = append(args, chunkEncodingArgs()...)
	args = append(args, out)

	output, err := e.cmd.RunOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return ChunkArtifact{}, fmt.Errorf("%w: %s: %v\nOutput: %s", ErrChunkExtractionFailed, w, err, output)
	}

	info, err := e.statter.Stat(out)
	if err != nil {
		return ChunkArtifact{}, fmt.Errorf("%w: %s: output missing: %v", ErrChunkExtractionFailed, w, err)
	}
	if info.Size() == 0 {
		return ChunkArtifact{}, fmt.Errorf("%w: %s: output is empty", ErrChunkExtractionFailed, w)
	}

	return ChunkArtifact{Window: w, Path: out}, nil
}

// chunkEncodingArgs re-encodes to 16kHz mono OGG Vorbis (~50kbps), enough for
// speech and far below provider upload limits for a 10 minute window.
func chunkEncodingArgs() []string {
	return []string{
		"-vn",
		"-c:a", "libvorbis",
		"-ar", "16000",
		"-ac", "1",
		"-q:a", "2",
	}
}

// formatFFmpegTime formats seconds for FFmpeg -ss/-to arguments.
func formatFFmpegTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	h := int(sec) / 3600
	m := (int(sec) % 3600) / 60
	s := sec - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
