// Package httpx provides the HTTP/1.1 request/response value types and
// wire codec shared by the server and client packages: Request and
// Response are plain value types with byte-vector bodies; the codec in
// internal/http1 converts between those values and the wire format.
// Neither package drives I/O itself — that is the job of server.Server,
// which serves each connection on its own executor.Strand, and of
// client.Client, which performs each request as blocking calls inside
// Client.Http.
package httpx
