package nirum

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/danderson/nirum/wire"
)

// Transport sends HTTP requests. *http.Client implements Transport.
type Transport interface {
	Do(*http.Request) (*http.Response, error)
}

// ClientOptions are optional parameters for [NewClient].
type ClientOptions struct {
	// Transport sends requests. If nil, http.DefaultClient is used.
	Transport Transport
	// Compress enables gzip compression of request bodies, and asks
	// the service for compressed responses.
	Compress bool
	// Header holds additional headers to send with every request.
	Header http.Header
	// Logger receives the client's logs. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
}

// Client calls the methods of a [Service] over HTTP.
//
// Clients are safe for concurrent use. A Client never retries: each
// call is exactly one request and one response.
type Client struct {
	url  *url.URL
	svc  *Service
	tr   Transport
	opts ClientOptions
	log  *slog.Logger
}

// NewClient returns a client for the service svc served at baseURL.
//
// baseURL must be an absolute URL. Its query and fragment, if any,
// are discarded, and a trailing slash is added to its path.
func NewClient(baseURL string, svc *Service, opts ClientOptions) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service URL %q: scheme and host are required", baseURL)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		u.RawPath = ""
	}

	ret := &Client{
		url:  u,
		svc:  svc,
		tr:   opts.Transport,
		opts: opts,
		log:  opts.Logger,
	}
	if ret.tr == nil {
		ret.tr = http.DefaultClient
	}
	if ret.log == nil {
		ret.log = slog.Default()
	}
	return ret, nil
}

// URL returns the normalized base URL of the service.
func (c *Client) URL() string { return c.url.String() }

// Service returns the service descriptor the client calls.
func (c *Client) Service() *Service { return c.svc }

// Ping checks that the service's health-check endpoint responds
// successfully.
func (c *Client) Ping(ctx context.Context) error {
	u := *c.url
	u.Path += "ping/"
	resp, err := c.do(ctx, &u, []byte("{}"))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UnexpectedResponseError{resp.StatusCode, resp.Body}
	}
	return nil
}

// Call calls the facial method name with args, one per declared
// parameter in declaration order, and returns the deserialized result.
//
// If the service responds with a member of the method's declared
// error union, Call returns it as the error. Values that do not
// implement error are wrapped in a [RemoteError]. Other failure
// responses are returned as an [UnexpectedResponseError].
func (c *Client) Call(ctx context.Context, name string, args ...any) (any, error) {
	m, ok := c.svc.Method(name)
	if !ok {
		return nil, fmt.Errorf("service %s has no method %q", c.svc.Name, name)
	}
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", m.Name, len(m.Params), len(args))
	}
	payload := make(map[string]any, len(args))
	for i, p := range m.Params {
		if err := Check(p.Type, args[i]); err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.Name, err)
		}
		pv, err := Serialize(args[i])
		if err != nil {
			return nil, fmt.Errorf("serializing argument %s: %w", p.Name, err)
		}
		payload[p.Behind] = pv
	}
	body, err := wire.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.CallRaw(ctx, m.Behind, body)
	if err != nil {
		return nil, err
	}
	if !isJSON(resp.Header) {
		return nil, UnexpectedResponseError{resp.StatusCode, resp.Body}
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if m.Return == nil {
			return nil, nil
		}
		return Unmarshal(m.Return, resp.Body)
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && m.Errors != nil:
		w, err := wire.Unmarshal(resp.Body)
		if err != nil {
			break
		}
		obj, _ := w.(map[string]any)
		if typ, _ := obj[wire.TypeKey].(string); typ != m.Errors.Name {
			break
		}
		tag, _ := obj[wire.TagKey].(string)
		if _, declared := m.Errors.Variant(tag); !declared {
			break
		}
		v, err := Deserialize(m.Errors, w)
		if err != nil {
			return nil, fmt.Errorf("decoding %s error: %w", m.Name, err)
		}
		return nil, asError(v.(Variant))
	}
	return nil, UnexpectedResponseError{resp.StatusCode, resp.Body}
}

// RawResponse is a service response as received.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CallRaw posts body, which must be a JSON object of serialized
// arguments keyed by behind name, to the behind method name. It
// returns the response without interpreting it.
func (c *Client) CallRaw(ctx context.Context, behind string, body []byte) (*RawResponse, error) {
	u := *c.url
	u.RawQuery = url.Values{"method": {behind}}.Encode()
	resp, err := c.do(ctx, &u, body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("rpc call", "method", behind, "status", resp.StatusCode)
	return resp, nil
}

func (c *Client) do(ctx context.Context, u *url.URL, body []byte) (*RawResponse, error) {
	encoded := body
	if c.opts.Compress {
		var err error
		if encoded, err = gzipBytes(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	for k, vs := range c.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", wire.ContentType+";charset=utf-8")
	req.Header.Set("Accept", wire.ContentType)
	if c.opts.Compress {
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("Accept-Encoding", "gzip")
	}

	resp, err := c.tr.Do(req)
	if err != nil {
		return nil, err
	}
	defer cleanlyCloseBody(resp.Body)
	bs, tooLarge, err := readBody(resp.Header, resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if tooLarge {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	return &RawResponse{resp.StatusCode, resp.Header, bs}, nil
}

// maxResponseBytes bounds the response bodies a client reads.
const maxResponseBytes = 1 << 30

// cleanlyCloseBody drains and closes an HTTP response body, so that
// the underlying connection can be reused.
func cleanlyCloseBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == wire.ContentType
}
