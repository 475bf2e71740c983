package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error taxonomy used at RPC boundaries, not a set of
// Go types — callers switch on Kind, not on concrete error type.
type ErrorKind string

const (
	KindInvalidParams     ErrorKind = "invalid_params"
	KindStoreError        ErrorKind = "store_error"
	KindEmbeddingError    ErrorKind = "embedding_error"
	KindTimeout           ErrorKind = "timeout"
	KindSubprocessNotFound ErrorKind = "subprocess_not_found"
	KindSubprocessError   ErrorKind = "subprocess_error"
	KindCancelled         ErrorKind = "cancelled"
	KindInternal          ErrorKind = "internal_error"
)

// KernelError carries a stable Kind alongside the wrapped cause, so the RPC
// layer can map it to a stable error code without regex-matching messages.
type KernelError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *KernelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *KernelError) Unwrap() error { return e.Err }

// NewError builds a KernelError of the given kind.
func NewError(kind ErrorKind, msg string, cause error) *KernelError {
	return &KernelError{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the ErrorKind from err, defaulting to KindInternal when err
// is not a *KernelError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindInternal
}
