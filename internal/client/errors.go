package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed call. Callers branch on the kind only and never
// look at transport errors directly.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindValidation
	KindPermission
	KindNotFound
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "AuthError"
	case KindValidation:
		return "ValidationError"
	case KindPermission:
		return "PermissionError"
	case KindNotFound:
		return "NotFoundError"
	case KindServer:
		return "ServerError"
	case KindNetwork:
		return "NetworkError"
	default:
		return "UnknownError"
	}
}

// ErrNoSession is wrapped by the AuthError returned when a call that needs a
// bearer token is made without one. No request is sent in that case.
var ErrNoSession = errors.New("no session")

// Error is the classified failure of one API call.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	// Fields holds per-field validation messages, if the server sent any.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		fmt.Fprintf(&b, "[%s] ", e.Op)
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindUnknown if it is not a *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// MessageOf returns the server-reported message of err, falling back to
// err.Error().
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Err: err}
}

// classify maps a non-2xx response to an Error.
func classify(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status}
	e.Message, e.Fields = parseErrorBody(body)

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
	case status == http.StatusForbidden:
		e.Kind = KindPermission
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 500:
		e.Kind = KindServer
	case status >= 400:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
		if e.Message == "" {
			e.Message = fmt.Sprintf("unexpected status %d", status)
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// parseErrorBody understands {"error": ...}, {"detail": ...}, {"message": ...}
// and field maps such as {"title": ["This field is required."]}.
func parseErrorBody(body []byte) (string, map[string][]string) {
	if len(body) == 0 {
		return "", nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			return strings.Join(list, "; "), nil
		}
		return "", nil
	}

	for _, k := range []string{"error", "detail", "message"} {
		if v, ok := raw[k]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				return s, nil
			}
		}
	}

	fields := make(map[string][]string)
	for k, v := range raw {
		var list []string
		if json.Unmarshal(v, &list) == nil {
			fields[k] = list
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			fields[k] = []string{s}
		}
	}
	if len(fields) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(fields[k], " ")
		if k == "non_field_errors" {
			parts = append(parts, msg)
		} else {
			parts = append(parts, k+": "+msg)
		}
	}
	return strings.Join(parts, "; "), fields
}
