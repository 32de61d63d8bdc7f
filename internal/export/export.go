// Package export delivers CSV exports to a destination: a local file or an
// S3 compatible bucket.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink stores an export under name and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) (location string, err error)
}

// Write renders an export into memory with fn and hands it to sink.
func Write(ctx context.Context, sink Sink, name string, fn func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return sink.Put(ctx, name, buf.Bytes())
}

// FileSink writes exports into a directory. An absolute name or one with a
// directory component is used as given.
type FileSink struct {
	Dir string
}

func (s FileSink) Put(_ context.Context, name string, data []byte) (string, error) {
	path := name
	if !filepath.IsAbs(name) && filepath.Base(name) == name {
		path = filepath.Join(s.Dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
