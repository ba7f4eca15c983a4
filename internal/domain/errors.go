// Package domain holds the data model and error kinds shared by every
// stage of the conversion pipeline.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors so callers can branch on the failure
// class without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConfiguration
	KindGeometry
	KindRender
	KindAnnotation
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConfiguration:
		return "configuration"
	case KindGeometry:
		return "invalid_geometry"
	case KindRender:
		return "render_failure"
	case KindAnnotation:
		return "annotation_failure"
	default:
		return "unknown"
	}
}

// Error is the pipeline error type. It carries a kind, a message and an
// optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFoundError reports a missing input document or image.
func NotFoundError(msg string, cause error) error {
	return &Error{Kind: KindNotFound, Message: msg, Cause: cause}
}

// ConfigError reports inconsistent or missing options.
func ConfigError(msg string, cause error) error {
	return &Error{Kind: KindConfiguration, Message: msg, Cause: cause}
}

// GeometryError reports degenerate page dimensions.
func GeometryError(msg string, cause error) error {
	return &Error{Kind: KindGeometry, Message: msg, Cause: cause}
}

// RenderError reports a renderer backend failure.
func RenderError(msg string, cause error) error {
	return &Error{Kind: KindRender, Message: msg, Cause: cause}
}

// AnnotationError reports a vision-completion transport or response
// failure.
func AnnotationError(msg string, cause error) error {
	return &Error{Kind: KindAnnotation, Message: msg, Cause: cause}
}

// IsKind reports whether err (or anything it wraps) is a pipeline error
// of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
