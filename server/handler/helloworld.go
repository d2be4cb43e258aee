package handler

import "github.com/yhgu2000/strandhttp/httpx"

// HelloWorld answers every request with a fixed 200 OK body, regardless
// of method or target. Grounded on the original's HttpHelloWorld.
type HelloWorld struct{}

func (HelloWorld) DoHandle(req *httpx.Request, onHandle func(resp *httpx.Response, err error)) {
	onHandle(&httpx.Response{
		StatusCode: 200,
		Header:     httpx.Header{"Content-Type": {"text/plain"}},
		Body:       []byte("Hello, World!"),
	}, nil)
}
