package transaction

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
)

type Reason string

const (
	AmountNotPositive   Reason = "AMOUNT_NOT_POSITIVE"
	CeilingExceeded     Reason = "CEILING_EXCEEDED"
	InsufficientBalance Reason = "INSUFFICIENT_BALANCE"
	AccountNotOpen      Reason = "ACCOUNT_NOT_OPEN"
	SameAccount         Reason = "SAME_ACCOUNT"
	RemoteRejected      Reason = "REMOTE_REJECTED"
)

// Rejection is a user-facing refusal of a submission. Every reason except
// RemoteRejected is decided locally, before anything is sent.
type Rejection struct {
	Reason  Reason
	Message string

	cause error
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.cause
}

func (r *Rejection) Local() bool {
	return r.Reason != RemoteRejected
}

// Unavailable reports whether a remote rejection came from the banking service
// being unreachable rather than declining the request.
func (r *Rejection) Unavailable() bool {
	var apiErr *bankapi.Error
	return errors.As(r.cause, &apiErr) && apiErr.Unavailable()
}

func reject(reason Reason, format string, args ...interface{}) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// remoteRejection keeps the remote message unchanged when there is one.
func remoteRejection(err error, fallback string) *Rejection {
	msg := fallback

	var apiErr *bankapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}

	return &Rejection{Reason: RemoteRejected, Message: msg, cause: err}
}

type Result struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message,omitempty"`
	Reason      Reason               `json:"reason,omitempty"`
	Transaction *bankapi.Transaction `json:"transaction,omitempty"`
}

// Outcome folds a submission into the {success, message} shape handed to the UI.
func Outcome(tx bankapi.Transaction, err error) Result {
	if err == nil {
		return Result{Success: true, Transaction: &tx}
	}

	var rej *Rejection
	if errors.As(err, &rej) {
		return Result{Success: false, Message: rej.Message, Reason: rej.Reason}
	}

	return Result{Success: false, Message: err.Error(), Reason: RemoteRejected}
}
