package fs

import (
	"fmt"
	"os"

	"github.com/dotbot-tools/rxtrace/internal/ports"
)

// CaptureSource implements ports.ByteSource over a raw capture file.
// Read returns io.EOF at the end of the file.
type CaptureSource struct {
	f *os.File
}

// OpenCapture opens a raw byte capture for replay.
func OpenCapture(path string) (*CaptureSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return &CaptureSource{f: f}, nil
}

// Read reads the next bytes of the capture.
func (c *CaptureSource) Read(p []byte) (int, error) {
	return c.f.Read(p)
}

// Close closes the capture file.
func (c *CaptureSource) Close() error {
	return c.f.Close()
}

// Name returns the capture path.
func (c *CaptureSource) Name() string {
	return c.f.Name()
}

// TeeSource copies every byte read from a source into a raw capture file,
// so a live session can be replayed later.
type TeeSource struct {
	src ports.ByteSource
	out *os.File
}

// NewTeeSource wraps src, appending its bytes to the file at path.
func NewTeeSource(src ports.ByteSource, path string) (*TeeSource, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open raw capture: %w", err)
	}
	return &TeeSource{src: src, out: out}, nil
}

// Read reads from the wrapped source and records the bytes.
func (t *TeeSource) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 {
		if _, werr := t.out.Write(p[:n]); werr != nil {
			return n, fmt.Errorf("write raw capture: %w", werr)
		}
	}
	return n, err
}

// Close closes the capture file and the wrapped source.
func (t *TeeSource) Close() error {
	err := t.out.Close()
	if serr := t.src.Close(); serr != nil {
		return serr
	}
	return err
}

var (
	_ ports.ByteSource = (*CaptureSource)(nil)
	_ ports.ByteSource = (*TeeSource)(nil)
	_ ports.RecordSink = (*JSONLSink)(nil)
)
