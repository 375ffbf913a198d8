package transform

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindMissingPrompt      Kind = "missing_prompt"
	KindMissingSelection   Kind = "missing_selection"
	KindMissingSecondImage Kind = "missing_second_image"
	KindImageTooLarge      Kind = "image_too_large"
	KindUnsupportedFormat  Kind = "unsupported_format"
	KindUnknownTool        Kind = "unknown_tool"
	KindVIPRequired        Kind = "vip_required"
	KindInvalidSetting     Kind = "invalid_setting"
)

// ValidationError rejects a request before it is submitted.
type ValidationError struct {
	Kind   Kind
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	msg := "transform: " + string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches another *ValidationError with the same Kind.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

func invalid(kind Kind, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the validation kind from err.
func KindOf(err error) (Kind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}
