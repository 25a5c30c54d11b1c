// Package apperr defines the error kinds surfaced by the graph and QA layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry decisions and for the boundary layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectivity
	KindQuery
	KindNotFound
	KindSearchIndexUnavailable
	KindUpstreamModel
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindQuery:
		return "query"
	case KindNotFound:
		return "not_found"
	case KindSearchIndexUnavailable:
		return "search_index_unavailable"
	case KindUpstreamModel:
		return "upstream_model"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the operation that failed and the underlying cause.
// Status is only meaningful for KindUpstreamModel (the upstream HTTP status, 0 if none).
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Status int
	Err    error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConnectivity           = &Error{Kind: KindConnectivity}
	ErrQuery                  = &Error{Kind: KindQuery}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrSearchIndexUnavailable = &Error{Kind: KindSearchIndexUnavailable}
	ErrUpstreamModel          = &Error{Kind: KindUpstreamModel}
	ErrValidation             = &Error{Kind: KindValidation}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Status == 0 && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Public returns a message that is safe to hand to untrusted callers. Query and
// connectivity failures may embed Cypher or driver internals, so they are reduced
// to their kind.
func Public(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindValidation, KindNotFound:
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.String()
	case KindUpstreamModel:
		if e.Msg != "" {
			return "answer generation failed: " + e.Msg
		}
		return "answer generation failed"
	case KindConnectivity:
		return "graph database unavailable"
	default:
		return "query failed"
	}
}

func Connectivity(op string, err error) error {
	return &Error{Kind: KindConnectivity, Op: op, Err: err}
}

func Query(op string, err error) error {
	return &Error{Kind: KindQuery, Op: op, Err: err}
}

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func IndexUnavailable(op string, err error) error {
	return &Error{Kind: KindSearchIndexUnavailable, Op: op, Err: err}
}

// Upstream builds a model-provider failure. status is the upstream HTTP status
// when one was received.
func Upstream(op string, status int, msg string, err error) error {
	return &Error{Kind: KindUpstreamModel, Op: op, Status: status, Msg: msg, Err: err}
}
