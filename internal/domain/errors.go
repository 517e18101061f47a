package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeVersionMismatch ErrorCode = "VERSION_MISMATCH"
	CodeDowngrade       ErrorCode = "DOWNGRADE"
	CodeInternal        ErrorCode = "INTERNAL"
)

var (
	ErrBaselineNotFound = errors.New("baseline not found")
	ErrToolNotFound     = errors.New("tool not found")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	var mismatch *VersionMismatchError
	if errors.As(err, &mismatch) {
		return CodeVersionMismatch, true
	}
	var downgrade *DowngradeError
	if errors.As(err, &downgrade) {
		return CodeDowngrade, true
	}
	switch {
	case errors.Is(err, ErrBaselineNotFound), errors.Is(err, ErrToolNotFound):
		return CodeNotFound, true
	default:
		return "", false
	}
}

// VersionMismatchError reports a major-version mismatch between a loaded
// baseline and the current format. Both versions travel with the error so
// callers can render an actionable message.
type VersionMismatchError struct {
	BaselineVersion FormatVersion
	CurrentVersion  FormatVersion
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("baseline format %s is incompatible with current format %s (major version mismatch)",
		e.BaselineVersion, e.CurrentVersion)
}

// DowngradeError reports an attempt to migrate a baseline whose format is
// newer than the current one. No migration can un-apply a newer format.
type DowngradeError struct {
	BaselineVersion FormatVersion
	CurrentVersion  FormatVersion
}

func (e *DowngradeError) Error() string {
	return fmt.Sprintf("baseline format %s is newer than current format %s; downgrade is not supported",
		e.BaselineVersion, e.CurrentVersion)
}
