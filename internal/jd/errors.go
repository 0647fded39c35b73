package jd

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an operation needs an authenticated
// session and none exists.
var ErrNotConnected = errors.New("not connected: authenticate first")

// ErrNoDeviceSelected is returned when a device call is attempted
// before a device has been bound to the session.
var ErrNoDeviceSelected = errors.New("no device selected")

// ErrNoDevices is returned when device selection finds an empty list.
var ErrNoDevices = errors.New("no devices connected to the relay")

// TransportError wraps a network-level failure talking to the relay.
// These are the only errors at this layer that are safe to retry.
type TransportError struct {
	// Op names the call that failed.
	Op string
	// Err is the underlying network error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CryptoError wraps a signing, encryption, or decryption failure.
// It is never swallowed: a body that fails both decryption and plain
// parsing surfaces as a CryptoError.
type CryptoError struct {
	// Op names the operation that failed.
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// RemoteSource identifies which end of the tunnel rejected a call.
type RemoteSource string

const (
	// SourceRelay means the cloud relay itself rejected the call.
	SourceRelay RemoteSource = "relay"
	// SourceDevice means the remote download manager rejected it.
	SourceDevice RemoteSource = "device"
)

// RemoteError is an explicit rejection by the relay or the device,
// carrying the machine-readable type string from the error body.
// Remote rejections are not retried automatically.
type RemoteError struct {
	// Source is which remote end produced the rejection.
	Source RemoteSource
	// Type is the machine-readable error code, e.g. "AUTH_FAILED".
	Type string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Source, e.Type)
}
