package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Compression names a byte-stream compressor.
type Compression string

const (
	CompressNone   Compression = "none"
	CompressGzip   Compression = "gzip"
	CompressZstd   Compression = "zstd"
	CompressSnappy Compression = "snappy"
	CompressLZ4    Compression = "lz4"
	CompressBrotli Compression = "brotli"
)

// ParseCompression maps a config string to a Compression. Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressNone:
		return CompressNone, nil
	case CompressGzip, CompressZstd, CompressSnappy, CompressLZ4, CompressBrotli:
		return c, nil
	case "deflate":
		return CompressGzip, nil
	default:
		return "", fmt.Errorf("unsupported compression: %q", s)
	}
}

// Extension returns the file suffix conventionally used for c.
func (c Compression) Extension() string {
	switch c {
	case CompressGzip:
		return ".gz"
	case CompressZstd:
		return ".zst"
	case CompressSnappy:
		return ".sz"
	case CompressLZ4:
		return ".lz4"
	case CompressBrotli:
		return ".br"
	default:
		return ""
	}
}

// ContentEncoding returns the HTTP Content-Encoding value for c, or "" for none.
func (c Compression) ContentEncoding() string {
	switch c {
	case CompressGzip:
		return "gzip"
	case CompressZstd:
		return "zstd"
	case CompressBrotli:
		return "br"
	case CompressSnappy:
		return "x-snappy-framed"
	case CompressLZ4:
		return "x-lz4"
	default:
		return ""
	}
}

// Compress returns data compressed with c.
func Compress(data []byte, c Compression) ([]byte, error) {
	var b bytes.Buffer
	var w io.WriteCloser

	switch c {
	case CompressGzip:
		w = gzip.NewWriter(&b)
	case CompressSnappy:
		w = snappy.NewBufferedWriter(&b)
	case CompressZstd:
		zw, err := zstd.NewWriter(&b)
		if err != nil {
			return nil, err
		}
		w = zw
	case CompressBrotli:
		w = brotli.NewWriterLevel(&b, brotli.BestCompression)
	case CompressLZ4:
		w = lz4.NewWriter(&b)
	case CompressNone, "":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %q", c)
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte, c Compression) ([]byte, error) {
	var r io.Reader
	src := bytes.NewReader(data)

	switch c {
	case CompressGzip:
		gr, err := gzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	case CompressSnappy:
		r = snappy.NewReader(src)
	case CompressZstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case CompressBrotli:
		r = brotli.NewReader(src)
	case CompressLZ4:
		r = lz4.NewReader(src)
	case CompressNone, "":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %q", c)
	}
	return io.ReadAll(r)
}
