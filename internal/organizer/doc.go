// Package organizer turns an analyzed transcript into a markdown note and
// moves the source recording into the archive.
//
// The note is written beside its final path as .tmp, the audio is moved to
// archive/<id>_<name>, and only then is the note renamed into place. Any
// failure after the move restores the audio to where it was and removes the
// temp note, so the output tree never holds a half-written note or an
// archived recording without one.
package organizer
