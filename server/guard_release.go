//go:build !strandhttp_debug

package server

// doubleHandleDetected is called when a connection's onHandle callback
// fires more than once for the same request. In release builds this is
// swallowed (the first call already drove the response); build with
// -tags strandhttp_debug to turn it into a panic during development.
func doubleHandleDetected(reason string) {}
