// Package save encodes registry collections and writes them atomically.
package save

import "strings"

// Format is the on-disk encoding of a collection.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	}
	return "unknown"
}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool { return f == FormatYAML || f == FormatJSON }

// Extension returns the file extension including the dot.
func (f Format) Extension() string { return "." + f.String() }

// ParseFormat accepts yaml, yml or json. Empty input is YAML.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, true
	case "json":
		return FormatJSON, true
	}
	return FormatYAML, false
}
