package engineadapter

import (
	"context"
	"strings"
	"sync"

	"grabby-orchestrator/internal/engineregistry"
)

// GalleryDlEngine fetches image galleries from sites gallery-dl supports.
type GalleryDlEngine struct {
	once      sync.Once
	available bool
}

func NewGalleryDlEngine() *GalleryDlEngine { return &GalleryDlEngine{} }

func (e *GalleryDlEngine) Name() engineregistry.EngineName { return engineregistry.GalleryDL }

func (e *GalleryDlEngine) Available() bool {
	e.once.Do(func() {
		e.available = checkBinaryAvailable(context.Background(), "gallery-dl", "--version")
	})
	return e.available
}

func (e *GalleryDlEngine) CanHandle(url string) bool {
	return engineregistry.MatchesAny(engineregistry.GalleryDL, url)
}

func (e *GalleryDlEngine) Fetch(ctx context.Context, req engineregistry.Request, onProgress engineregistry.ProgressFunc) (engineregistry.Result, error) {
	if err := ensureDiskSpace(req.OutputDir); err != nil {
		return engineregistry.Result{}, err
	}

	args := []string{"--dest", req.OutputDir, "--write-metadata", "--write-info-json", req.URL}

	var downloaded []string
	err := runAndStreamLines(ctx, func(line string) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "/") || isWindowsAbsPath(trimmed) {
			downloaded = append(downloaded, trimmed)
			if onProgress != nil {
				onProgress(0, "", "")
			}
		}
	}, "gallery-dl", args...)
	if err != nil {
		return engineregistry.Result{}, err
	}

	var last string
	if len(downloaded) > 0 {
		last = downloaded[len(downloaded)-1]
	}
	return engineregistry.Result{
		Status:     "completed",
		OutputPath: last,
		Engine:     e.Name(),
	}, nil
}

func isWindowsAbsPath(s string) bool {
	return len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/')
}
