package reader

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names an input compression codec
type Compression string

const (
	CompressionAuto   Compression = "auto"
	CompressionNone   Compression = "none"
	CompressionGzip   Compression = "gzip"
	CompressionBzip2  Compression = "bzip2"
	CompressionZstd   Compression = "zstd"
	CompressionLZ4    Compression = "lz4"
	CompressionSnappy Compression = "snappy"
	CompressionBrotli Compression = "brotli"
)

var compressions = []Compression{
	CompressionAuto, CompressionNone, CompressionGzip, CompressionBzip2,
	CompressionZstd, CompressionLZ4, CompressionSnappy, CompressionBrotli,
}

// ParseCompression validates a codec name. The empty string means auto.
func ParseCompression(name string) (Compression, error) {
	if name == "" {
		return CompressionAuto, nil
	}
	c := Compression(strings.ToLower(name))
	for _, known := range compressions {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown compression %q", name)
}

var compressionExtensions = map[string]Compression{
	".gz":     CompressionGzip,
	".gzip":   CompressionGzip,
	".bz2":    CompressionBzip2,
	".zst":    CompressionZstd,
	".zstd":   CompressionZstd,
	".lz4":    CompressionLZ4,
	".sz":     CompressionSnappy,
	".snappy": CompressionSnappy,
	".br":     CompressionBrotli,
}

// CompressionFromPath returns the codec implied by the file extension, or
// CompressionNone
func CompressionFromPath(path string) Compression {
	if c, ok := compressionExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return CompressionNone
}

// stripCompressionExt removes a compression extension so the format can be
// detected from what remains (data.csv.gz -> data.csv)
func stripCompressionExt(path string) string {
	ext := filepath.Ext(path)
	if _, ok := compressionExtensions[strings.ToLower(ext)]; ok {
		return strings.TrimSuffix(path, ext)
	}
	return path
}

var magics = []struct {
	prefix []byte
	c      Compression
}{
	{[]byte{0x1f, 0x8b}, CompressionGzip},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, CompressionZstd},
	{[]byte("BZh"), CompressionBzip2},
	{[]byte{0x04, 0x22, 0x4d, 0x18}, CompressionLZ4},
	{[]byte("\xff\x06\x00\x00sNaPpY"), CompressionSnappy},
	{[]byte("\xff\x06\x00\x00S2sTwO"), CompressionSnappy},
}

// sniff detects a codec from the leading bytes. Brotli streams carry no
// magic number and are only recognised by extension.
func sniff(br *bufio.Reader) Compression {
	head, _ := br.Peek(10)
	for _, m := range magics {
		if bytes.HasPrefix(head, m.prefix) {
			return m.c
		}
	}
	return CompressionNone
}

// Decompress wraps r with the decoder for c. With CompressionAuto the codec
// is detected from the stream; pathHint may name the file for brotli.
func Decompress(r io.Reader, c Compression, pathHint string) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if c == CompressionAuto || c == "" {
		c = sniff(br)
		if c == CompressionNone && CompressionFromPath(pathHint) == CompressionBrotli {
			c = CompressionBrotli
		}
	}

	switch c {
	case CompressionNone:
		return io.NopCloser(br), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return zr, nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(br)), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(br)), nil
	case CompressionSnappy:
		return io.NopCloser(s2.NewReader(br)), nil
	case CompressionBrotli:
		return io.NopCloser(brotli.NewReader(br)), nil
	}
	return nil, fmt.Errorf("unsupported compression %q", c)
}
