// Package export encodes reports and writes them to disk.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Yousha/dotlyzer/internal/core"
)

// Format is a report output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// CodeInvalidFormat marks an unknown output format.
const CodeInvalidFormat = "INVALID_FORMAT"

// ParseFormat accepts text, json and yaml (or yml), in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", core.ErrValidation(CodeInvalidFormat, fmt.Sprintf("unknown output format %q", s))
	}
}

// Structured reports whether f is a machine-readable format.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// Encode writes v to w in f. Text is rendered by the shell, not here.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return core.ErrValidation(CodeInvalidFormat, fmt.Sprintf("format %q is not structured", f))
	}
}

// Marshal is Encode into a byte slice.
func Marshal(f Format, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile replaces path with data atomically, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
