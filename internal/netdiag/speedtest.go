// Package netdiag measures host network throughput so the bandwidth
// accountant can be seeded with a realistic default budget when none is
// configured explicitly.
package netdiag

import (
	"context"

	"github.com/showwin/speedtest-go/speedtest"

	"grabby-orchestrator/internal/errkind"
)

// Measurement is a single throughput sample.
type Measurement struct {
	DownloadMbps float64
	UploadMbps   float64
	ServerName   string
}

// Measure runs a one-shot speedtest against the nearest available server.
func Measure(ctx context.Context) (Measurement, error) {
	client := speedtest.New()

	serverList, err := client.FetchServers()
	if err != nil {
		return Measurement{}, errkind.Wrap(errkind.TransientFetchFailure, "fetch speedtest servers", err)
	}
	targets, err := serverList.FindServer(nil)
	if err != nil || len(targets) == 0 {
		return Measurement{}, errkind.Wrap(errkind.TransientFetchFailure, "find speedtest server", err)
	}
	target := targets[0]

	if err := target.DownloadTest(); err != nil {
		return Measurement{}, errkind.Wrap(errkind.TransientFetchFailure, "speedtest download test", err)
	}
	if err := target.UploadTest(); err != nil {
		return Measurement{}, errkind.Wrap(errkind.TransientFetchFailure, "speedtest upload test", err)
	}

	return Measurement{
		DownloadMbps: float64(target.DLSpeed) / 1_000_000 * 8,
		UploadMbps:   float64(target.ULSpeed) / 1_000_000 * 8,
		ServerName:   target.Name,
	}, nil
}

// BudgetFromMeasurement converts a measured download speed to a
// conservative bandwidth budget in bytes/sec, reserving headroom for other
// host traffic.
func BudgetFromMeasurement(m Measurement, reserveFraction float64) int64 {
	if reserveFraction <= 0 || reserveFraction >= 1 {
		reserveFraction = 0.2
	}
	usable := m.DownloadMbps * (1 - reserveFraction)
	return int64(usable * 1_000_000 / 8)
}
