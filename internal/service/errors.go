package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrRejected           = errors.New("transition rejected")
	ErrBusy               = errors.New("transition already in progress")
	ErrVerificationFailed = errors.New("write verification failed")
	ErrPartialFailure     = errors.New("partial failure")
	ErrUnauthorized       = errors.New("invalid credentials")
)

// ValidationError is a user-correctable input problem. The store is not
// touched when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type RejectReason string

const (
	RejectSameStatus    RejectReason = "same_status"
	RejectNotSingleStep RejectReason = "not_single_step"
	RejectUnknownStatus RejectReason = "unknown_status"
	RejectNotDelivered  RejectReason = "not_delivered"
	RejectAlreadyWon    RejectReason = "already_won"
	RejectMissingActor  RejectReason = "missing_actor"
	RejectNotWon        RejectReason = "not_won"
	RejectStale         RejectReason = "stale"
)

// RejectionError is a lifecycle rule violation. Nothing was written.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("transition rejected: %s", e.Reason)
	}
	return fmt.Sprintf("transition rejected: %s: %s", e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}

func reject(reason RejectReason, format string, args ...interface{}) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// RejectionReason extracts the reason from err, if err is a rejection.
func RejectionReason(err error) (RejectReason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// VerificationError means the store accepted a write but the row it returned
// does not carry the written values.
type VerificationError struct {
	Field string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("write verification failed: %s does not match", e.Field)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerificationFailed
}

// PartialFailureError reports a follow-up write that failed after the primary
// write committed. The primary write is not rolled back.
type PartialFailureError struct {
	Op  string
	Err error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed after commit: %v", e.Op, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}
