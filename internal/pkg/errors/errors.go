package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnknown             Kind = ""
	KindEmbeddingFailure    Kind = "embedding_failure"
	KindStoreUnavailable    Kind = "store_unavailable"
	KindUpstreamHTTP        Kind = "upstream_http_error"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindMalformedUpstream   Kind = "malformed_upstream_response"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
)

// Error carries a failure kind so callers can branch on it without parsing
// messages. Status and Body are only set for upstream HTTP failures.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUpstreamHTTP:
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) && typed.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

func UpstreamHTTP(status int, body string) error {
	return &Error{Kind: KindUpstreamHTTP, Status: status, Body: body}
}

func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
