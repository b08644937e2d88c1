//go:build !darwin && !linux

package metadata

import "os"

func statTimes(_ string, info os.FileInfo) fileTimes {
	return fileTimes{mtime: info.ModTime()}
}
