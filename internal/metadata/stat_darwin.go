//go:build darwin

package metadata

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func statTimes(path string, info os.FileInfo) fileTimes {
	times := fileTimes{mtime: info.ModTime()}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return times
	}
	times.ctime = time.Unix(st.Ctim.Unix())
	times.birth = time.Unix(st.Btim.Unix())
	return times
}
