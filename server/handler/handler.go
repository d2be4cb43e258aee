// Package handler defines the request-handling extension point for
// server.Server, plus the two built-in handlers used for smoke-testing and
// load-testing a deployment: HelloWorld and MatrixPower.
package handler

import "github.com/yhgu2000/strandhttp/httpx"

// Handler processes one request and must call onHandle exactly once, with
// either a populated response or a non-nil error. DoHandle may return
// before onHandle is called — it is itself a continuation-passing step,
// not a direct call/return, so a handler that needs to do further
// asynchronous work (a file read, a downstream request) may post that
// work and invoke onHandle from its own callback.
//
// Content-Length on the returned response is filled in by the caller
// (server/conn.go); handlers never set it themselves.
type Handler interface {
	DoHandle(req *httpx.Request, onHandle func(resp *httpx.Response, err error))
}

// Func adapts a plain function to the Handler interface.
type Func func(req *httpx.Request, onHandle func(resp *httpx.Response, err error))

func (f Func) DoHandle(req *httpx.Request, onHandle func(resp *httpx.Response, err error)) {
	f(req, onHandle)
}
