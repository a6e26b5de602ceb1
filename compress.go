package nirum

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

func gzipBytes(bs []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(bs); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// readBody reads at most limit bytes of r, undoing any gzip
// Content-Encoding. It reports whether the body exceeded limit.
func readBody(h http.Header, r io.Reader, limit int64) (bs []byte, tooLarge bool, err error) {
	switch enc := strings.ToLower(strings.TrimSpace(h.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, false, fmt.Errorf("reading gzip body: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, false, fmt.Errorf("unsupported Content-Encoding %q", enc)
	}
	bs, err = io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(bs)) > limit {
		return nil, true, nil
	}
	return bs, false, nil
}
