package engineadapter

import (
	"github.com/shirou/gopsutil/v3/disk"

	"grabby-orchestrator/internal/errkind"
)

// minFreeBytes is the floor below which a fetch is refused outright rather
// than risking a fetch process failing partway through for lack of space.
const minFreeBytes = 100 * 1024 * 1024

// ensureDiskSpace returns an error if the filesystem backing dir has less
// than minFreeBytes of free space.
func ensureDiskSpace(dir string) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		return errkind.Wrap(errkind.InternalInvariantViolation, "stat disk usage for "+dir, err)
	}
	if usage.Free < minFreeBytes {
		return errkind.New(errkind.PermanentFetchFailure, "insufficient disk space at "+dir)
	}
	return nil
}
