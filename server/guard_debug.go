//go:build strandhttp_debug

package server

// doubleHandleDetected panics, enforcing the exactly-once onHandle
// contract during development builds.
func doubleHandleDetected(reason string) {
	panic("server: " + reason)
}
