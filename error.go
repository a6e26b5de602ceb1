package nirum

import (
	"fmt"
	"net/http"
)

// WireError is the error returned when a wire value does not match
// the shape its declared type requires.
type WireError struct {
	// Type is the schema notation of the expected type.
	Type string
	// Reason is an explanation of what is wrong with the wire value.
	Reason error
}

func (e WireError) Error() string {
	return fmt.Sprintf("invalid wire value for %s: %s", e.Type, e.Reason)
}

func (e WireError) Unwrap() error {
	return e.Reason
}

func wireErr(t Type, reason string, args ...any) error {
	ts := ""
	if t != nil {
		ts = t.String()
	}
	return WireError{ts, fmt.Errorf(reason, args...)}
}

// TypeError is the error returned when a value does not match its
// declared type.
type TypeError struct {
	// Attribute is the facial name of the offending field, if any.
	Attribute string
	// Expected is the schema notation of the declared type.
	Expected string
	// Actual describes the type of the value found.
	Actual string
}

func (e TypeError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Attribute, e.Expected, e.Actual)
}

func typeErr(attr string, t Type, v any) error {
	return TypeError{attr, t.String(), valueName(v)}
}

// UnexpectedResponseError is the error returned by [Client] when a
// service responds with something other than a result or a declared
// error.
type UnexpectedResponseError struct {
	StatusCode int
	// Body is the raw response body.
	Body []byte
}

func (e UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// RemoteError wraps a declared service error whose Go type does not
// implement error.
type RemoteError struct {
	Value Variant
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote error %s", e.Value.VariantType())
}

// asError returns v as an error, wrapping it in a RemoteError if
// necessary.
func asError(v Variant) error {
	if err, ok := v.(error); ok {
		return err
	}
	return RemoteError{v}
}
