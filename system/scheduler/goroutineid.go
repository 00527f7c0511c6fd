package scheduler

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the id of the calling goroutine, parsed out of
// runtime.Stack's header line. Go has no public identity primitive
// equivalent to std::thread::id; this is the standard last-resort way to
// recover one, used only to detect "am I already running on this runner's
// consumer goroutine" for ScheduleHandleTask's inline-if-reentrant rule.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
