package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil. An existing *Error keeps its code; a context
// error becomes TIMEOUT or CANCELED; anything else becomes INTERNAL.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		wrapped := &Error{
			code:      typed.code,
			category:  typed.category,
			message:   message,
			cause:     err,
			metadata:  typed.Metadata(),
			timestamp: typed.timestamp,
			docID:     typed.docID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code. An error that already
// carries a talentkit code keeps it, so the stage that failed first is the one
// reported.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return Wrap(err, message, opts...)
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// As extracts an *Error from an error chain, or returns nil.
func As(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is checks if the outermost *Error in the chain has the given code.
func Is(err error, code ErrorCode) bool {
	if typed := As(err); typed != nil {
		return typed.code == code
	}
	return false
}

// IsExtraction reports an EXTRACTION error.
func IsExtraction(err error) bool { return Is(err, ErrCodeExtraction) }

// IsEmbedding reports an EMBEDDING error.
func IsEmbedding(err error) bool { return Is(err, ErrCodeEmbedding) }

// IsStorage reports a STORAGE error, including corruption.
func IsStorage(err error) bool { return Is(err, ErrCodeStorage) }

// IsGeneration reports a GENERATION error.
func IsGeneration(err error) bool { return Is(err, ErrCodeGeneration) }

// IsNotFound reports a NOT_FOUND error.
func IsNotFound(err error) bool { return Is(err, ErrCodeNotFound) }

// IsCorruption reports a storage error raised for inconsistent index state.
func IsCorruption(err error) bool {
	typed := As(err)
	return typed != nil && typed.code == ErrCodeStorage && typed.metadata["reason"] == "corruption"
}

// IsRetryable checks if the error is retryable. Untyped errors are not.
func IsRetryable(err error) bool {
	if typed := As(err); typed != nil {
		return typed.Retryable()
	}
	return false
}

// Code extracts the error code from an error, or returns "".
func Code(err error) ErrorCode {
	if typed := As(err); typed != nil {
		return typed.code
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}
