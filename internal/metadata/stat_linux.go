//go:build linux

package metadata

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Linux exposes birth time only through statx, which many filesystems leave
// unset; the mtime fallback covers it.
func statTimes(path string, info os.FileInfo) fileTimes {
	times := fileTimes{mtime: info.ModTime()}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return times
	}
	times.ctime = time.Unix(st.Ctim.Unix())
	return times
}
