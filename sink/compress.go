package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Supported csv compression codecs.
const (
	CompressNone = "none"
	CompressGzip = "gzip"
	CompressZstd = "zstd"
	CompressLZ4  = "lz4"
)

// ValidCompression reports whether codec names a supported codec.
// The empty string means none.
func ValidCompression(codec string) bool {
	switch codec {
	case "", CompressNone, CompressGzip, CompressZstd, CompressLZ4:
		return true
	}
	return false
}

func compressExt(codec string) string {
	switch codec {
	case CompressGzip:
		return ".gz"
	case CompressZstd:
		return ".zst"
	case CompressLZ4:
		return ".lz4"
	}
	return ""
}

// compressedFile wraps an output file in the selected codec stream.
// Close flushes the codec frame before closing the file.
type compressedFile struct {
	f *os.File
	w io.WriteCloser // nil when uncompressed
}

func createCompressed(path, codec string) (*compressedFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	cf := &compressedFile{f: f}
	switch codec {
	case "", CompressNone:
	case CompressGzip:
		cf.w = gzip.NewWriter(f)
	case CompressZstd:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		cf.w = zw
	case CompressLZ4:
		cf.w = lz4.NewWriter(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported compression %q", codec)
	}
	return cf, nil
}

func (c *compressedFile) Write(p []byte) (int, error) {
	if c.w != nil {
		return c.w.Write(p)
	}
	return c.f.Write(p)
}

func (c *compressedFile) Close() error {
	if c.w != nil {
		if err := c.w.Close(); err != nil {
			c.f.Close()
			return fmt.Errorf("failed to finish compressed stream: %w", err)
		}
	}
	return c.f.Close()
}
