package httpx

import "net/textproto"

// Header is a case-insensitive HTTP header field map, keyed by canonical
// MIME header form (as produced by net/textproto.CanonicalMIMEHeaderKey).
type Header map[string][]string

// Get returns the first value associated with key, or "" if absent.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	if vv, ok := h[k]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// Set replaces any existing values for key with a single value.
func (h Header) Set(key, value string) {
	k := textproto.CanonicalMIMEHeaderKey(key)
	h[k] = []string{value}
}

// Add appends value to key's existing values.
func (h Header) Add(key, value string) {
	k := textproto.CanonicalMIMEHeaderKey(key)
	h[k] = append(h[k], value)
}

// Del removes all values for key.
func (h Header) Del(key string) {
	if h == nil {
		return
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	delete(h, k)
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, vv := range h {
		cp := make([]string, len(vv))
		copy(cp, vv)
		out[k] = cp
	}
	return out
}
