// Package manifest loads the JSON configuration file that describes a
// set of HTTP servers to build and start: a map from logical server name
// to that server's listen address, handler type and handler-specific
// options.
//
// Parsing tolerates `//` line comments and trailing commas via
// github.com/tailscale/hujson before handing the normalized JSON to
// encoding/json; hujson is the standard choice for exactly this (it
// backs `tailscale up`'s own config files).
package manifest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tailscale/hujson"
)

// Manifest is the root of a configuration file: logical server name to
// that server's configuration.
type Manifest map[string]ServerConfig

// ServerConfig describes one server to build.
type ServerConfig struct {
	// Type selects the built-in handler: "helloworld" or "matrixpower".
	Type string `json:"Type"`
	Host string `json:"Host"`
	Port Port   `json:"Port"`

	// Backlog is copied into server.Config.Backlog when positive (zero
	// keeps server.DefaultConfig's value); the server does not apply it
	// to its listener.
	Backlog int `json:"Backlog,omitempty"`

	Details Details `json:"Details"`
}

// Details holds the handler-agnostic connection-handling options common
// to every built-in handler type.
type Details struct {
	BufferLimit      uint `json:"BufferLimit"`
	KeepAliveTimeout uint `json:"KeepAliveTimeout"`

	// KeepAliveMax is nil for "unbounded" (JSON null).
	KeepAliveMax *uint `json:"KeepAliveMax"`
}

// Port is a uint16 that unmarshals from either a JSON number or a
// numeric string, since the manifest shape is inconsistent about this
// across server entries in practice.
type Port uint16

func (p *Port) UnmarshalJSON(data []byte) error {
	var n uint16
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Port(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("manifest: Port must be a JSON number or numeric string, got %s", data)
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return fmt.Errorf("manifest: Port %q is not a valid uint16: %w", s, err)
	}
	*p = Port(v)
	return nil
}

func (p Port) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint16(p))
}

// Load parses manifest data, tolerating `//` comments and trailing
// commas, and validates the result.
func Load(data []byte) (Manifest, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(std, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every server entry for a recognized Type and a
// non-empty Host.
func (m Manifest) Validate() error {
	for name, cfg := range m {
		if cfg.Host == "" {
			return fmt.Errorf("manifest: server %q: Host is required", name)
		}
		switch cfg.Type {
		case "helloworld", "matrixpower":
		default:
			return fmt.Errorf("manifest: server %q: unknown Type %q", name, cfg.Type)
		}
	}
	return nil
}

// Example returns a sample manifest suitable for --manifest-example.
func Example() Manifest {
	unbounded := (*uint)(nil)
	max3 := uint(3)
	return Manifest{
		"hello": ServerConfig{
			Type: "helloworld",
			Host: "127.0.0.1",
			Port: 8000,
			Details: Details{
				BufferLimit:      8 << 10,
				KeepAliveTimeout: 3,
				KeepAliveMax:     &max3,
			},
		},
		"matpowsum": ServerConfig{
			Type: "matrixpower",
			Host: "127.0.0.1",
			Port: 8001,
			Details: Details{
				BufferLimit:      8 << 10,
				KeepAliveTimeout: 3,
				KeepAliveMax:     unbounded,
			},
		},
	}
}
