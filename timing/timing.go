// Package timing echoes named timing events to stdout when they match a
// filter read once from TIMING_MONITOR_FILTER. The filter is compiled
// lazily and cached, since an env var read at process start should not
// be revisited on every call.
package timing

import (
	"fmt"
	"os"
	"regexp"
	"sync"
)

var filter = sync.OnceValue(func() *regexp.Regexp {
	pattern := os.Getenv("TIMING_MONITOR_FILTER")
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timing: invalid TIMING_MONITOR_FILTER %q: %v\n", pattern, err)
		return nil
	}
	return re
})

// Mark reports that a named timing event occurred; if TIMING_MONITOR_FILTER
// is set and tag matches it, the event is echoed to stdout.
func Mark(tag string) {
	re := filter()
	if re == nil || !re.MatchString(tag) {
		return
	}
	fmt.Fprintln(os.Stdout, tag)
}
