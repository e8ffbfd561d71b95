package screener

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// decodeBody undoes the Content-Encoding of a response body. Unknown or empty
// encodings are returned as is.
func decodeBody(encoding string, raw []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		var r *gzip.Reader
		r, err = gzip.NewReader(bytes.NewReader(raw))
		if err == nil {
			out, err = io.ReadAll(r)
			r.Close()
		}
	case "deflate":
		out, err = inflate(raw)
	case "br":
		out, err = io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	case "zstd":
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(nil)
		if err == nil {
			out, err = dec.DecodeAll(raw, nil)
			dec.Close()
		}
	default:
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", encoding, err)
	}
	return out, nil
}

// inflate accepts both zlib-wrapped and raw deflate streams.
func inflate(raw []byte) ([]byte, error) {
	if r, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		defer r.Close()
		return io.ReadAll(r)
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	return io.ReadAll(r)
}
