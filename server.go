package nirum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/danderson/nirum/wire"
	"github.com/klauspost/compress/gzhttp"
)

// DefaultMaxRequestBytes is the request body limit used when
// ServerOptions.MaxRequestBytes is zero.
const DefaultMaxRequestBytes = 10 << 20

// ServerOptions are optional parameters for [NewServer].
type ServerOptions struct {
	// Logger receives the server's logs. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
	// Hook, if not nil, is called around every dispatched call.
	Hook DispatchHook
	// MaxRequestBytes limits the size of decoded request
	// bodies. Zero means DefaultMaxRequestBytes.
	MaxRequestBytes int64
	// Compress enables gzip compression of responses, for clients
	// that accept it.
	Compress bool
}

// Server serves the methods of a [Service] over HTTP.
//
// The server answers POST requests to "/?method=<behind name>", and
// health checks on "/ping/". Mount it under a prefix with
// http.StripPrefix.
type Server struct {
	svc     *Service
	log     *slog.Logger
	limit   int64
	handler http.Handler

	mu       sync.RWMutex
	hook     DispatchHook
	handlers map[string]handlerFunc
}

// NewServer returns a server for svc with no registered handlers.
func NewServer(svc *Service, opts ServerOptions) *Server {
	ret := &Server{
		svc:      svc,
		log:      opts.Logger,
		limit:    opts.MaxRequestBytes,
		hook:     opts.Hook,
		handlers: map[string]handlerFunc{},
	}
	if ret.log == nil {
		ret.log = slog.Default()
	}
	if ret.limit <= 0 {
		ret.limit = DefaultMaxRequestBytes
	}
	if ret.hook == nil {
		ret.hook = nopHook{}
	}
	ret.handler = http.HandlerFunc(ret.route)
	if opts.Compress {
		ret.handler = gzhttp.GzipHandler(ret.handler)
	}
	return ret
}

// Service returns the service descriptor the server implements.
func (s *Server) Service() *Service { return s.svc }

// SetDispatchHook replaces the server's dispatch hook. A nil hook
// disables dispatch callbacks.
func (s *Server) SetDispatchHook(h DispatchHook) {
	if h == nil {
		h = nopHook{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Handle calls fn to handle calls to the facial method name.
//
// fn accepts a context.Context followed by one argument per declared
// parameter, in declaration order. It returns the method's result and
// an error, or just an error if the method returns nothing. Each
// argument type must be assignable from the deserialized value of the
// corresponding parameter: for example string for text, []any for a
// sequence, or the generated type of a record. Optional parameters
// are passed as the zero value when null.
//
// To report a declared error, fn returns a [Variant] of the method's
// error union that implements error. Any other error is reported to
// the caller as an internal server error.
//
// Handle panics if the method is not declared by the service, or if
// fn is not a function with a valid signature.
func (s *Server) Handle(name string, fn any) {
	m, ok := s.svc.Method(name)
	if !ok {
		panic(fmt.Errorf("service %s has no method %q", s.svc.Name, name))
	}
	handler := handlerForFunc(m, fn)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[m.Name] = handler
}

type handlerFunc func(ctx context.Context, args []any) (any, error)

func handlerForFunc(m *Method, fn any) handlerFunc {
	v := reflect.ValueOf(fn)
	if !v.IsValid() {
		panic(errors.New("nil handler function given to Handle"))
	}
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Errorf("Handle called with non-function handler type %s", t))
	}
	ni, no := t.NumIn(), t.NumOut()

	const msgInvalidHandlerSignature = "invalid signature %s for %s handler func, valid signatures are:\n  func(context.Context, Param1, ..., ParamN) (Ret, error)\n  func(context.Context, Param1, ..., ParamN) error"

	if t.IsVariadic() || ni != len(m.Params)+1 || no < 1 || no > 2 {
		panic(fmt.Errorf(msgInvalidHandlerSignature, t, m.Name))
	}
	if !t.In(0).Implements(reflect.TypeFor[context.Context]()) {
		panic(fmt.Errorf(msgInvalidHandlerSignature, t, m.Name))
	}
	if t.Out(no-1) != reflect.TypeFor[error]() {
		panic(fmt.Errorf(msgInvalidHandlerSignature, t, m.Name))
	}
	if no == 1 && m.Return != nil {
		panic(fmt.Errorf("handler for %s must return a %s result", m.Name, m.Return))
	}

	paramTypes := make([]reflect.Type, len(m.Params))
	for i := range m.Params {
		paramTypes[i] = t.In(i + 1)
	}

	return func(ctx context.Context, args []any) (any, error) {
		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, reflect.ValueOf(ctx))
		for i, arg := range args {
			pt := paramTypes[i]
			if arg == nil {
				in = append(in, reflect.Zero(pt))
				continue
			}
			av := reflect.ValueOf(arg)
			if !av.Type().AssignableTo(pt) {
				return nil, fmt.Errorf("argument %s: %s is not assignable to %s", m.Params[i].Name, av.Type(), pt)
			}
			in = append(in, av)
		}
		rets := v.Call(in)
		if err, ok := rets[no-1].Interface().(error); ok && err != nil {
			return nil, err
		}
		if no == 1 {
			return nil, nil
		}
		return rets[0].Interface(), nil
	}
}

func (s *Server) lookupHandler(name string) (handlerFunc, DispatchHook) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[name], s.hook
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		s.serveRPC(w, r)
	case "/ping/":
		s.writeJSON(w, http.StatusOK, []byte(`"Ok"`))
	default:
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("The requested URL %s was not found on this service.", r.URL.Path))
	}
}

// callError is a protocol-level failure of a call, reported to the
// caller as an error envelope.
type callError struct {
	Status  int
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *callError) Error() string { return e.Message }
func (e *callError) Unwrap() error { return e.Err }

func badRequest(format string, args ...any) *callError {
	return &callError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("The requested URL %s was not allowed HTTP method %s.", r.URL.Path, r.Method))
		return
	}
	behind := r.URL.Query().Get("method")
	if behind == "" {
		s.writeError(w, http.StatusBadRequest, "A query string parameter method= is missing.")
		return
	}
	m, ok := s.svc.Lookup(behind)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Service doesn't have procedure named '%s'.", behind))
		return
	}
	handler, hook := s.lookupHandler(m.Name)
	if handler == nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Service has no procedure '%s'.", behind))
		return
	}

	info := DispatchInfo{
		Service:    s.svc.Name,
		Method:     m.Behind,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Header:     make(map[string]string, len(r.Header)),
	}
	for k := range r.Header {
		info.Header[strings.ToLower(k)] = r.Header.Get(k)
	}

	start := time.Now()
	ctx, token := hook.OnDispatchStart(r.Context(), info)
	ctx = withContextMethod(withContextRequest(ctx, r), m)

	stats := CallStats{Status: http.StatusOK}
	body, err := s.dispatch(ctx, r, m, handler, &stats)
	if err != nil {
		var ce *callError
		if errors.As(err, &ce) {
			stats.Status = ce.Status
			if body == nil {
				body = s.errorBody(ce.Status, ce.Message)
			}
		} else {
			stats.Status = http.StatusInternalServerError
			body = s.errorBody(stats.Status, err.Error())
		}
	}
	if stats.Status >= http.StatusInternalServerError {
		s.log.Error("rpc method failed", "service", s.svc.Name, "method", m.Behind, "err", err)
	}

	stats.ResponseBytes = int64(len(body))
	s.writeJSON(w, stats.Status, body)
	hook.OnDispatchEnd(ctx, token, info, stats, err)
	s.log.Debug("rpc call", "service", s.svc.Name, "method", m.Behind, "status", stats.Status, "duration", time.Since(start))
}

// dispatch runs one call of m. On failure, it returns a *callError
// for protocol errors, along with the response body if it is not a
// plain error envelope.
func (s *Server) dispatch(ctx context.Context, r *http.Request, m *Method, handler handlerFunc, stats *CallStats) ([]byte, error) {
	raw, tooLarge, err := readBody(r.Header, r.Body, s.limit)
	if err != nil {
		return nil, badRequest("Invalid request body: %s.", err)
	}
	if tooLarge {
		return nil, &callError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("Request body exceeds %d bytes.", s.limit),
		}
	}
	stats.RequestBytes = int64(len(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	payload, err := wire.Unmarshal(raw)
	obj, isObj := payload.(map[string]any)
	if err != nil || !isObj {
		return nil, badRequest("Invalid JSON payload: '%s'.", raw)
	}

	args := make([]any, 0, len(m.Params))
	for _, p := range m.Params {
		pw, ok := obj[p.Behind]
		if !ok {
			return nil, badRequest("A argument named '%s' is missing, it is required.", p.Behind)
		}
		arg, err := Deserialize(p.Type, pw)
		if err != nil {
			ce := badRequest("Incorrect type '%s' for '%s'. expected '%s'.", wire.KindOf(pw), p.Behind, p.Type)
			ce.Err = err
			return nil, ce
		}
		args = append(args, arg)
	}

	ret, err := s.invoke(ctx, handler, args)
	if err != nil {
		var dv Variant
		if m.Errors != nil && errors.As(err, &dv) && dv.VariantType().Union() == m.Errors {
			body, serr := Marshal(dv)
			if serr != nil {
				return nil, fmt.Errorf("serializing declared error: %w", serr)
			}
			return body, &callError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
		}
		return nil, err
	}

	body, err := Marshal(ret)
	if err != nil {
		return nil, fmt.Errorf("serializing result: %w", err)
	}
	if m.Return != nil {
		if _, err := Unmarshal(m.Return, body); err != nil {
			ce := badRequest("Incorrect return type '%s' for '%s'. expected '%s'.", valueName(ret), m.Behind, m.Return)
			ce.Err = err
			return nil, ce
		}
	} else {
		body = []byte("null")
	}
	return body, nil
}

// invoke calls handler, converting a panic into an error.
func (s *Server) invoke(ctx context.Context, handler handlerFunc, args []any) (ret any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return handler(ctx, args)
}

func (s *Server) errorBody(status int, message string) []byte {
	bs, err := wire.Marshal(wire.NewError(status, message))
	if err != nil {
		// Error envelopes are plain structs of strings.
		panic(fmt.Errorf("encoding error envelope: %w", err))
	}
	return bs
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, s.errorBody(status, message))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.log.Error("writing response", "err", err)
	}
}
