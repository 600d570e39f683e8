package media

import (
	"context"
	"os"
)

// commandRunner runs FFmpeg and returns its stderr. Satisfied by *ffmpeg.Executor.
type commandRunner interface {
	RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
