package transaction

import "strings"

const (
	defaultDepositDescription    = "general deposit"
	defaultDepositCategory       = "General Deposit"
	defaultWithdrawalDescription = "General Withdrawal"
	defaultWithdrawalCategory    = "General Withdrawal"
	defaultTransferDescription   = "General Transfer"
)

// DepositRequest is the draft of a deposit as typed into the form. Amount is
// kept as text until validation.
type DepositRequest struct {
	ToAccount   string `json:"toAccount"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type WithdrawalRequest struct {
	FromAccount string `json:"fromAccount"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type TransferRequest struct {
	FromAccount string `json:"fromAccount"`
	ToAccount   string `json:"toAccount"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (r DepositRequest) normalize() DepositRequest {
	r.ToAccount = strings.TrimSpace(r.ToAccount)
	r.Description = orDefault(r.Description, defaultDepositDescription)
	r.Category = orDefault(r.Category, defaultDepositCategory)
	return r
}

func (r WithdrawalRequest) normalize() WithdrawalRequest {
	r.FromAccount = strings.TrimSpace(r.FromAccount)
	r.Description = orDefault(r.Description, defaultWithdrawalDescription)
	r.Category = orDefault(r.Category, defaultWithdrawalCategory)
	return r
}

func (r TransferRequest) normalize() TransferRequest {
	r.FromAccount = strings.TrimSpace(r.FromAccount)
	r.ToAccount = strings.TrimSpace(r.ToAccount)
	r.Description = orDefault(r.Description, defaultTransferDescription)
	return r
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
