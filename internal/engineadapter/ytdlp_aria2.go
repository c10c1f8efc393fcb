package engineadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"grabby-orchestrator/internal/engineregistry"
	"grabby-orchestrator/internal/errkind"
)

// aria2ProgressRe matches aria2c's bracketed progress line, e.g.
// "[#1 SIZE:12MiB/50MiB(24%) CN:1 DL:1.2MiB ETA:30s]".
var aria2ProgressRe = regexp.MustCompile(`SIZE:\S+/\S+\((\d+)%\).*DL:(\S+).*ETA:(\S+)`)

// YtDlpAria2Engine is the general-purpose video engine: yt-dlp resolves a
// direct media URL, aria2c performs the segmented download.
type YtDlpAria2Engine struct {
	once      sync.Once
	available bool

	videoSiteRe *regexp.Regexp
}

// NewYtDlpAria2Engine constructs the general-purpose fallback engine.
func NewYtDlpAria2Engine() *YtDlpAria2Engine {
	return &YtDlpAria2Engine{
		videoSiteRe: regexp.MustCompile(`youtube\.com|youtu\.be|vimeo\.com|dailymotion\.com|facebook\.com/watch`),
	}
}

func (e *YtDlpAria2Engine) Name() engineregistry.EngineName { return engineregistry.YtDlpAria2 }

func (e *YtDlpAria2Engine) Available() bool {
	e.once.Do(func() {
		ctx := context.Background()
		e.available = checkBinaryAvailable(ctx, "yt-dlp", "--version") &&
			checkBinaryAvailable(ctx, "aria2c", "--version")
	})
	return e.available
}

// CanHandle accepts every URL: yt-dlp supports a very broad set of sites,
// and this engine is the catch-all fallback, tried after the more specific
// engines in the registry's preference order.
func (e *YtDlpAria2Engine) CanHandle(url string) bool {
	return true
}

func (e *YtDlpAria2Engine) Fetch(ctx context.Context, req engineregistry.Request, onProgress engineregistry.ProgressFunc) (engineregistry.Result, error) {
	if err := ensureDiskSpace(req.OutputDir); err != nil {
		return engineregistry.Result{}, err
	}

	meta, err := e.resolveMetadata(ctx, req.URL)
	if err != nil {
		return engineregistry.Result{}, err
	}

	inputFile, err := e.writeAria2InputFile(meta.DirectURL, req.OutputDir)
	if err != nil {
		return engineregistry.Result{}, errkind.Wrap(errkind.InternalInvariantViolation, "write aria2 input file", err)
	}
	defer os.Remove(inputFile)

	outPath := filepath.Join(req.OutputDir, meta.Filename)
	args := []string{"--input-file", inputFile, "--dir", req.OutputDir, "--summary-interval=1"}

	err = runAndStreamLines(ctx, func(line string) {
		if m := aria2ProgressRe.FindStringSubmatch(line); m != nil {
			pct, _ := strconv.ParseFloat(m[1], 64)
			if onProgress != nil {
				onProgress(pct, m[2], m[3])
			}
		}
	}, "aria2c", args...)
	if err != nil {
		return engineregistry.Result{}, err
	}

	return engineregistry.Result{
		Status:     "completed",
		OutputPath: outPath,
		Title:      meta.Title,
		DurationS:  meta.Duration,
		Engine:     e.Name(),
	}, nil
}

type ytDlpMetadata struct {
	DirectURL string  `json:"url"`
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Ext       string  `json:"ext"`
	Filename  string  `json:"-"`
}

func (e *YtDlpAria2Engine) resolveMetadata(ctx context.Context, url string) (ytDlpMetadata, error) {
	cmd := execCommandFunc(ctx, "yt-dlp", "--dump-json", "--no-download", url)
	out, err := cmd.Output()
	if err != nil {
		return ytDlpMetadata{}, errkind.Wrap(errkind.TransientFetchFailure, "yt-dlp metadata resolution failed", err)
	}
	var meta ytDlpMetadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return ytDlpMetadata{}, errkind.Wrap(errkind.PermanentFetchFailure, "yt-dlp produced unparseable metadata", err)
	}
	meta.Filename = fmt.Sprintf("%s.%s", sanitizeFilename(meta.Title), meta.Ext)
	return meta, nil
}

func (e *YtDlpAria2Engine) writeAria2InputFile(directURL, outDir string) (string, error) {
	f, err := os.CreateTemp("", "aria2-input-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n  dir=%s\n", directURL, outDir); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func sanitizeFilename(name string) string {
	replacer := regexp.MustCompile(`[/\\?%*:|"<>]`)
	cleaned := replacer.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "download"
	}
	return cleaned
}
