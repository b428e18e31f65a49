package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

const (
	brotliDynamicQuality = 4 // fast enough for dynamic responses, ~15-20% smaller than gzip

	// Single lookups answer in a few dozen bytes; only Export and
	// ListLexicons are worth compressing.
	minCompressSize = 1024
)

var gzipWriterPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

var brotliWriterPool = sync.Pool{
	New: func() any {
		return brotli.NewWriterLevel(io.Discard, brotliDynamicQuality)
	},
}

// compressMiddleware applies brotli or gzip compression to responses of at
// least minCompressSize bytes when the client supports it. Prefers brotli
// over gzip. Responses that already carry Content-Encoding pass through.
func compressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Strip Accept-Encoding so connect-go doesn't compress independently.
		// This middleware owns response compression.
		r = r.Clone(r.Context())
		r.Header.Del("Accept-Encoding")

		cw := &compressWriter{
			ResponseWriter: w,
			encoding:       encoding,
		}
		defer cw.Close()

		next.ServeHTTP(cw, r)
	})
}

func negotiateEncoding(header string) string {
	switch {
	case acceptsEncoding(header, "br"):
		return "br"
	case acceptsEncoding(header, "gzip"):
		return "gzip"
	default:
		return ""
	}
}

// acceptsEncoding checks whether the Accept-Encoding header includes the given encoding.
func acceptsEncoding(header, encoding string) bool {
	for part := range strings.SplitSeq(header, ",") {
		enc, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(enc) != encoding {
			continue
		}
		// "br;q=0" means not acceptable.
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// compressWriter buffers the start of a response and decides whether to
// compress once minCompressSize bytes have arrived or the handler finishes.
type compressWriter struct {
	http.ResponseWriter
	encoding string // "br" or "gzip"

	code        int    // status passed to WriteHeader, 0 until then
	buf         []byte // pending body while undecided
	decided     bool
	compressing bool
	writer      io.WriteCloser
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.code != 0 || cw.decided {
		return
	}
	cw.code = code
	// Headers set by the handler decide immediately.
	if cw.Header().Get("Content-Encoding") != "" || code == http.StatusNoContent || code == http.StatusNotModified {
		cw.decide(false)
	}
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.code == 0 {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.decided {
		if cw.compressing {
			return cw.writer.Write(b)
		}
		return cw.ResponseWriter.Write(b)
	}

	cw.buf = append(cw.buf, b...)
	if len(cw.buf) >= minCompressSize {
		if err := cw.decide(true); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

// decide commits headers and flushes the buffered body, compressed or not.
func (cw *compressWriter) decide(compress bool) error {
	if cw.decided {
		return nil
	}
	cw.decided = true
	if cw.code == 0 {
		cw.code = http.StatusOK
	}

	if compress {
		cw.compressing = true
		cw.Header().Set("Content-Encoding", cw.encoding)
		cw.Header().Del("Content-Length")
		cw.Header().Add("Vary", "Accept-Encoding")

		switch cw.encoding {
		case "br":
			bw := brotliWriterPool.Get().(*brotli.Writer)
			bw.Reset(cw.ResponseWriter)
			cw.writer = bw
		case "gzip":
			gz := gzipWriterPool.Get().(*gzip.Writer)
			gz.Reset(cw.ResponseWriter)
			cw.writer = gz
		}
	}

	cw.ResponseWriter.WriteHeader(cw.code)

	pending := cw.buf
	cw.buf = nil
	if len(pending) == 0 {
		return nil
	}
	var err error
	if cw.compressing {
		_, err = cw.writer.Write(pending)
	} else {
		_, err = cw.ResponseWriter.Write(pending)
	}
	return err
}

// Flush forces the compression decision so streamed bytes reach the client.
func (cw *compressWriter) Flush() {
	_ = cw.decide(len(cw.buf) > 0)
	if cw.compressing {
		// brotli.Writer implements Flush(); gzip.Writer implements Flush().
		if f, ok := cw.writer.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Close() {
	// Short responses are sent as is.
	_ = cw.decide(false)
	if !cw.compressing || cw.writer == nil {
		return
	}
	_ = cw.writer.Close()

	// Return to pool.
	switch cw.encoding {
	case "br":
		brotliWriterPool.Put(cw.writer)
	case "gzip":
		gzipWriterPool.Put(cw.writer)
	}
	cw.writer = nil
}
