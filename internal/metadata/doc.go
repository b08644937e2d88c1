// Package metadata captures when a recording was made and the raw facts it
// was derived from. The recording time comes from the first available of:
// the container creation_time tag, Spotlight (mdls) dates, the file birth
// time, and the file modification time.
package metadata
