package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Output Serialization API
// =============================================================================

// MarshalOutput serializes an Output to indented JSON bytes. The encoding is
// deterministic: equal outputs always produce identical bytes.
func MarshalOutput(out *Output) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOutputTo(out, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteOutput writes an Output as JSON to an io.Writer.
// Use MarshalOutput for in-memory serialization or WriteOutputFile for files.
func WriteOutput(out *Output, w io.Writer) error {
	return writeOutputTo(out, w)
}

// WriteOutputFile writes an Output to a JSON file.
// The file is created with 0644 permissions.
func WriteOutputFile(out *Output, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeOutputTo(out, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// UnmarshalOutput deserializes JSON bytes into an Output.
// The layout tree must be present.
func UnmarshalOutput(data []byte) (*Output, error) {
	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal layout: %w", err)
	}
	if out.Layout == nil {
		return nil, fmt.Errorf("layout output must contain a layout tree")
	}
	return &out, nil
}

// ReadOutput decodes a layout JSON document from an io.Reader.
func ReadOutput(r io.Reader) (*Output, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return UnmarshalOutput(data)
}

// ReadOutputFile reads a layout JSON file.
func ReadOutputFile(path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalOutput(data)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeOutputTo(out *Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
