package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteJSON pretty-prints v to w
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// OpenOutput returns stdout for "" or "-", otherwise a created file.
// The returned close func is always safe to call.
func OpenOutput(file string, stdout io.Writer) (io.Writer, func() error, error) {
	if file == "" || file == "-" {
		return stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	fh, err := os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", file, err)
	}
	return fh, fh.Close, nil
}
