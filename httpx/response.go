package httpx

import "strconv"

// Response is an HTTP/1.1 response value: status code, version, headers
// and a byte-vector body. The Content-Length header is auto-populated
// from Body by Finalize rather than set directly by callers.
type Response struct {
	StatusCode int
	Proto      string
	Header     Header
	Body       []byte
}

// StatusText returns the standard reason phrase for r.StatusCode, falling
// back to a generic phrase for unrecognized codes.
func (r *Response) StatusText() string {
	if t, ok := statusText[r.StatusCode]; ok {
		return t
	}
	return "Unknown Status"
}

// Finalize sets Content-Length from len(Body) and fills in Proto if
// empty, matching spec's "Content-Length is auto-populated on responses".
func (r *Response) Finalize() {
	if r.Proto == "" {
		r.Proto = "HTTP/1.1"
	}
	if r.Header == nil {
		r.Header = Header{}
	}
	r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
}

var statusText = map[int]string{
	200: "OK",
	204: "No Content",
	400: "Bad Request",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
	503: "Service Unavailable",
}
