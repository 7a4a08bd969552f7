package account

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
)

type Type string

const (
	Debit   Type = "DEBIT"
	Savings Type = "SAVINGS"
	Credit  Type = "CREDIT"
)

func (t Type) Supported() bool {
	return t == Debit || t == Savings || t == Credit
}

type Status string

const (
	Open   Status = "OPEN"
	Closed Status = "CLOSED"
)

func (s Status) Supported() bool {
	return s == Open || s == Closed
}

// BalanceError is returned when an account cannot be closed because money is left on it.
type BalanceError struct {
	Balance amount.Amount
}

func (be *BalanceError) Error() string {
	return fmt.Sprintf("account balance must be zero before closing, balance: %s", be.Balance)
}

type Account struct {
	ID      int64         `json:"id"`
	Number  string        `json:"accountNumber"`
	Type    Type          `json:"accountType"`
	Balance amount.Amount `json:"balance"`
	Status  Status        `json:"status"`
}

func (a Account) IsOpen() bool {
	return a.Status == Open
}

// MaskedNumber keeps only the last four digits visible.
func (a Account) MaskedNumber() string {
	n := strings.TrimSpace(a.Number)
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", 4) + n[len(n)-4:]
}

// Normalize upper-cases type and status, the remote API is not consistent about casing.
func Normalize(accounts []Account) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		a.Type = Type(strings.ToUpper(strings.TrimSpace(string(a.Type))))
		a.Status = Status(strings.ToUpper(strings.TrimSpace(string(a.Status))))
		a.Number = strings.TrimSpace(a.Number)

		if a.Balance.IsNegative() {
			log.Warnf("account %s reported negative balance %s", a.MaskedNumber(), a.Balance)
		}

		out = append(out, a)
	}
	return out
}

func ValidateStatusChange(acc Account, to Status) error {
	if !to.Supported() {
		return errors.Errorf("unsupported account status %q", to)
	}

	if to == Closed && !acc.Balance.IsZero() {
		return &BalanceError{Balance: acc.Balance}
	}

	return nil
}

type StatusUpdateRequest struct {
	Status Status `json:"status"`
}

// ValidateTypeChange only allows supported types on open accounts.
func ValidateTypeChange(acc Account, to Type) error {
	if !to.Supported() {
		return errors.Errorf("unsupported account type %q", to)
	}

	if !acc.IsOpen() {
		return errors.Errorf("account %s is not open", acc.MaskedNumber())
	}

	if acc.Type == to {
		return errors.Errorf("account %s is already %s", acc.MaskedNumber(), to)
	}

	return nil
}

// TypeRequest carries the account type for creating an account or changing one.
type TypeRequest struct {
	AccountType Type `json:"accountType"`
}

func (r TypeRequest) Normalized() Type {
	return Type(strings.ToUpper(strings.TrimSpace(string(r.AccountType))))
}
