// Package nirumtest provides helpers to run nirum services in tests.
package nirumtest

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danderson/nirum"
)

// Server is a nirum server listening on a loopback address for the
// duration of a test.
type Server struct {
	*nirum.Server
	hs *httptest.Server
}

// NewServer starts serving srv on a loopback HTTP server, which is
// shut down when the calling test completes.
func NewServer(t testing.TB, srv *nirum.Server) *Server {
	t.Helper()
	ret := &Server{
		Server: srv,
		hs:     httptest.NewServer(srv),
	}
	t.Cleanup(ret.hs.Close)
	return ret
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return s.hs.URL + "/"
}

// MustClient returns a client of the server. It causes an immediate
// test failure with t.Fatal if the client cannot be constructed.
func (s *Server) MustClient(t testing.TB, opts nirum.ClientOptions) *nirum.Client {
	t.Helper()
	if opts.Transport == nil {
		opts.Transport = s.hs.Client()
	}
	ret, err := nirum.NewClient(s.URL(), s.Service(), opts)
	if err != nil {
		t.Fatalf("creating client for test server: %v", err)
	}
	return ret
}

// Transport is a [nirum.Transport] that serves requests in-process
// with Handler, without any network I/O.
type Transport struct {
	Handler http.Handler
}

// Do implements nirum.Transport.
func (tr Transport) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if tr.Handler == nil {
		return nil, fmt.Errorf("nirumtest.Transport has no handler for %s", req.URL)
	}
	if req.RemoteAddr == "" {
		req.RemoteAddr = "192.0.2.1:1234"
	}
	rec := httptest.NewRecorder()
	tr.Handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

// BaseURL is the service URL used by clients returned by [NewClient].
const BaseURL = "http://nirum.test/"

// NewClient returns a client of srv that dispatches calls in-process
// through a [Transport].
func NewClient(t testing.TB, srv *nirum.Server, opts nirum.ClientOptions) *nirum.Client {
	t.Helper()
	opts.Transport = Transport{Handler: srv}
	ret, err := nirum.NewClient(BaseURL, srv.Service(), opts)
	if err != nil {
		t.Fatalf("creating in-process client: %v", err)
	}
	return ret
}

// Logger returns a logger that writes all records, including debug
// records, to t.Log.
func Logger(t testing.TB) *slog.Logger {
	lw := &logWriter{t: t}
	t.Cleanup(lw.Flush)
	return slog.New(slog.NewTextHandler(lw, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// logWriter is an io.Writer that logs each complete line of its
// input with t.Log.
type logWriter struct {
	t testing.TB

	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logWriter) Write(bs []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(bs)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i == -1 {
			break
		}
		line := l.buf.Next(i + 1)
		l.t.Log(string(line[:i]))
	}
	return len(bs), nil
}

// Flush logs any incomplete trailing line.
func (l *logWriter) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.t.Log(l.buf.String())
		l.buf.Reset()
	}
}
