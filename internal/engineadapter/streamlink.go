package engineadapter

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"grabby-orchestrator/internal/engineregistry"
)

// StreamlinkEngine records live streams via streamlink, which handles
// reconnect/retry itself for flaky live sources.
type StreamlinkEngine struct {
	once      sync.Once
	available bool
}

func NewStreamlinkEngine() *StreamlinkEngine { return &StreamlinkEngine{} }

func (e *StreamlinkEngine) Name() engineregistry.EngineName { return engineregistry.Streamlink }

func (e *StreamlinkEngine) Available() bool {
	e.once.Do(func() {
		e.available = checkBinaryAvailable(context.Background(), "streamlink", "--version")
	})
	return e.available
}

func (e *StreamlinkEngine) CanHandle(url string) bool {
	return engineregistry.MatchesAny(engineregistry.Streamlink, url)
}

func (e *StreamlinkEngine) Fetch(ctx context.Context, req engineregistry.Request, onProgress engineregistry.ProgressFunc) (engineregistry.Result, error) {
	if err := ensureDiskSpace(req.OutputDir); err != nil {
		return engineregistry.Result{}, err
	}

	outPath := filepath.Join(req.OutputDir, "stream.ts")
	quality := req.Quality
	if quality == "" {
		quality = "best"
	}

	args := []string{
		req.URL, quality,
		"--hls-live-restart", "--retry-streams", "5", "--retry-max", "10",
		"-o", outPath,
	}

	err := runAndStreamLines(ctx, func(line string) {
		if strings.Contains(line, "Written") && strings.Contains(line, "bytes") && onProgress != nil {
			onProgress(0, "", "")
		}
	}, "streamlink", args...)
	if err != nil {
		return engineregistry.Result{}, err
	}

	return engineregistry.Result{
		Status:     "completed",
		OutputPath: outPath,
		Title:      filepath.Base(outPath),
		Engine:     e.Name(),
	}, nil
}
