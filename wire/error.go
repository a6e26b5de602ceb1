package wire

import (
	"net/http"
	"strings"
)

// ErrorType is the "_type" of error envelopes.
const ErrorType = "error"

// Error is the envelope of protocol-level error responses.
type Error struct {
	Type    string  `json:"_type"`
	Tag     string  `json:"_tag"`
	Message *string `json:"message"`
}

// NewError returns the error envelope for an HTTP status. An empty
// message is encoded as null.
func NewError(status int, message string) Error {
	ret := Error{
		Type: ErrorType,
		Tag:  StatusTag(status),
	}
	if message != "" {
		ret.Message = &message
	}
	return ret
}

// StatusTag returns the error tag of an HTTP status: its reason phrase
// in lower case, with spaces replaced by underscores.
func StatusTag(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "http error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}

// ParseError extracts an error envelope from a wire tree.
func ParseError(v any) (Error, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Error{}, false
	}
	if typ, _ := obj[TypeKey].(string); typ != ErrorType {
		return Error{}, false
	}
	tag, ok := obj[TagKey].(string)
	if !ok {
		return Error{}, false
	}
	ret := Error{Type: ErrorType, Tag: tag}
	if msg, ok := obj["message"].(string); ok {
		ret.Message = &msg
	}
	return ret, true
}

func (e Error) Error() string {
	if e.Message == nil {
		return e.Tag
	}
	return e.Tag + ": " + *e.Message
}
