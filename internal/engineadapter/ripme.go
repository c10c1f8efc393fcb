package engineadapter

import (
	"context"
	"os"
	"strings"
	"sync"

	"grabby-orchestrator/internal/engineregistry"
)

// RipmeEngine fetches image galleries via the ripme Java jar, for sites
// gallery-dl doesn't cover.
type RipmeEngine struct {
	JarPath string

	once      sync.Once
	available bool
}

// NewRipmeEngine builds a ripme engine that invokes the jar at jarPath.
func NewRipmeEngine(jarPath string) *RipmeEngine {
	return &RipmeEngine{JarPath: jarPath}
}

func (e *RipmeEngine) Name() engineregistry.EngineName { return engineregistry.Ripme }

func (e *RipmeEngine) Available() bool {
	e.once.Do(func() {
		if _, err := os.Stat(e.JarPath); err != nil {
			e.available = false
			return
		}
		e.available = checkBinaryAvailable(context.Background(), "java", "-version")
	})
	return e.available
}

func (e *RipmeEngine) CanHandle(url string) bool {
	return engineregistry.MatchesAny(engineregistry.Ripme, url)
}

func (e *RipmeEngine) Fetch(ctx context.Context, req engineregistry.Request, onProgress engineregistry.ProgressFunc) (engineregistry.Result, error) {
	if err := ensureDiskSpace(req.OutputDir); err != nil {
		return engineregistry.Result{}, err
	}

	args := []string{"-jar", e.JarPath, "--url", req.URL, "--ripsdirectory", req.OutputDir}

	err := runAndStreamLines(ctx, func(line string) {
		if strings.Contains(line, "Downloaded") || strings.Contains(line, "Downloading") {
			if onProgress != nil {
				onProgress(0, "", "")
			}
		}
	}, "java", args...)
	if err != nil {
		return engineregistry.Result{}, err
	}

	return engineregistry.Result{
		Status:     "completed",
		OutputPath: req.OutputDir,
		Engine:     e.Name(),
	}, nil
}
