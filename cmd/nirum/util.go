package main

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/creachadair/mds/heapq"
	"github.com/creachadair/mds/slice"
	"github.com/danderson/nirum"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type indenter struct {
	prefix     string
	indentNext bool
}

func (i *indenter) v(v any) {
	fmt.Fprintf(i, "%v\n", v)
}

func (i *indenter) s(msg string) {
	io.WriteString(i, msg+"\n")
}

func (i *indenter) Write(bs []byte) (int, error) {
	ret := 0
	for len(bs) > 0 {
		if i.indentNext {
			i.indentNext = false
			if _, err := io.WriteString(os.Stdout, i.prefix); err != nil {
				return ret, err
			}
		}

		wr := bs
		if idx := bytes.IndexByte(bs, '\n'); idx >= 0 {
			i.indentNext = true
			wr, bs = bs[:idx+1], bs[idx+1:]
		} else {
			bs = nil
		}

		n, err := os.Stdout.Write(wr)
		ret += n
		if err != nil {
			return ret, err
		}
	}
	return ret, nil
}

func (i *indenter) indent(n int) {
	i.prefix = strings.Repeat("  ", n)
}

func growTo(s []string, n int) []string {
	for len(s) < n {
		s = append(s, "")
	}
	return s
}

// newLogger returns a logger writing records at or above levelStr to
// outW, as text or as JSON lines.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

// sortedMethods returns the methods of svc whose facial or behind
// name matches f, ordered by behind name.
func sortedMethods(svc *nirum.Service, f *regexp.Regexp) []*nirum.Method {
	q := heapq.New(func(a, b *nirum.Method) int {
		return cmp.Compare(a.Behind, b.Behind)
	})
	for m := range slice.Select(svc.Methods(), func(m *nirum.Method) bool {
		return f.MatchString(m.Name) || f.MatchString(m.Behind)
	}) {
		q.Add(m)
	}
	var ret []*nirum.Method
	for !q.IsEmpty() {
		m, _ := q.Pop()
		ret = append(ret, m)
	}
	return ret
}

// renamed formats a facial name, followed by its behind name if it
// differs.
func renamed(facial, behind string) string {
	if facial == behind {
		return facial
	}
	return fmt.Sprintf("%s (wire: %s)", facial, behind)
}

// signature formats m in schema notation.
func signature(m *nirum.Method) string {
	var b strings.Builder
	b.WriteString(renamed(m.Name, m.Behind))
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", renamed(p.Name, p.Behind), p.Type)
	}
	fmt.Fprintf(&b, ") -> %s", m.ReturnString())
	if m.Errors != nil {
		fmt.Fprintf(&b, " throws %s", m.Errors)
	}
	return b.String()
}

// setupOtel installs global trace and meter providers that export to
// w. The returned function flushes and stops them.
func setupOtel(w io.Writer) (func(context.Context) error, error) {
	spans, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics)))
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// shutdownGrace bounds how long shutdownLogged waits.
const shutdownGrace = 5 * time.Second

// shutdownLogged calls shutdown with a bounded context, and logs its
// failure, if any.
func shutdownLogged(log *slog.Logger, what string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("shutting down "+what, "err", err)
	}
}
