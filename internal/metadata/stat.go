package metadata

import "time"

type fileTimes struct {
	mtime time.Time
	ctime time.Time
	birth time.Time
}

func (t fileTimes) asMap() map[string]any {
	m := map[string]any{"st_mtime": unixSeconds(t.mtime)}
	if !t.ctime.IsZero() {
		m["st_ctime"] = unixSeconds(t.ctime)
	}
	if !t.birth.IsZero() {
		m["st_birthtime"] = unixSeconds(t.birth)
	}
	return m
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// StatTime converts a stored st_* value back into a time.
func StatTime(stat map[string]any, key string) (time.Time, bool) {
	v, ok := stat[key].(float64)
	if !ok {
		return time.Time{}, false
	}
	sec := int64(v)
	return time.Unix(sec, int64((v-float64(sec))*1e9)), true
}
