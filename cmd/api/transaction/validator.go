package transaction

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
	"golang.org/x/sync/singleflight"
)

const displayCurrency = "GBP"

type Kind string

const (
	Deposit    Kind = "deposit"
	Withdrawal Kind = "withdrawal"
	Transfer   Kind = "transfer"
)

// Remote is the part of the banking API the validator submits to.
type Remote interface {
	Deposit(ctx context.Context, auth bankapi.Auth, p bankapi.DepositPayload) (bankapi.Transaction, error)
	Withdraw(ctx context.Context, auth bankapi.Auth, p bankapi.WithdrawPayload) (bankapi.Transaction, error)
	Transfer(ctx context.Context, auth bankapi.Auth, p bankapi.TransferPayload) (bankapi.Transaction, error)
	AccountBalance(ctx context.Context, auth bankapi.Auth, accountID int64) (amount.Amount, error)
}

// Reconciler brings local state in line with the remote side after a
// successful submission.
type Reconciler interface {
	Reconcile(ctx context.Context, auth bankapi.Auth, kind Kind, tx bankapi.Transaction)
}

type Limits struct {
	Deposit    amount.Amount
	Withdrawal amount.Amount
	Transfer   amount.Amount
}

func DefaultLimits() Limits {
	return Limits{
		Deposit:    amount.FromInt(10000),
		Withdrawal: amount.FromInt(5000),
		Transfer:   amount.FromInt(10000),
	}
}

type Validator struct {
	remote     Remote
	reconciler Reconciler
	limits     Limits

	inflight singleflight.Group
}

func NewValidator(remote Remote, reconciler Reconciler, limits Limits) *Validator {
	return &Validator{
		remote:     remote,
		reconciler: reconciler,
		limits:     limits,
	}
}

func (v *Validator) Limits() Limits {
	return v.limits
}

func (v *Validator) SubmitDeposit(ctx context.Context, auth bankapi.Auth, req DepositRequest, snapshot account.Snapshot) (bankapi.Transaction, error) {
	req = req.normalize()

	amt, err := checkAmount(req.Amount, v.limits.Deposit, "Deposit")
	if err != nil {
		return bankapi.Transaction{}, err
	}

	if _, ok := snapshot.FindOpen(req.ToAccount); !ok {
		return bankapi.Transaction{}, notOpen(req.ToAccount)
	}

	payload := bankapi.DepositPayload{
		AccountNumber: req.ToAccount,
		Amount:        amt,
		Description:   req.Description,
		Category:      req.Category,
	}

	key := fmt.Sprintf("%d|%s|%s|%s|%s|%s", auth.UserID, Deposit, req.ToAccount, amt, req.Description, req.Category)

	echo := bankapi.Transaction{Type: string(Deposit), AccountNumber: req.ToAccount, Amount: amt, Category: req.Category, Description: req.Description}

	return v.submit(ctx, auth, Deposit, key, echo, func(ctx context.Context) (bankapi.Transaction, error) {
		return v.remote.Deposit(ctx, auth, payload)
	})
}

func (v *Validator) SubmitWithdrawal(ctx context.Context, auth bankapi.Auth, req WithdrawalRequest, snapshot account.Snapshot) (bankapi.Transaction, error) {
	req = req.normalize()

	amt, err := checkAmount(req.Amount, v.limits.Withdrawal, "Withdrawal")
	if err != nil {
		return bankapi.Transaction{}, err
	}

	from, ok := snapshot.FindOpen(req.FromAccount)
	if !ok {
		return bankapi.Transaction{}, notOpen(req.FromAccount)
	}

	payload := bankapi.WithdrawPayload{
		AccountNumber: req.FromAccount,
		Amount:        amt,
		Description:   req.Description,
		Category:      req.Category,
	}

	key := fmt.Sprintf("%d|%s|%s|%s|%s|%s", auth.UserID, Withdrawal, req.FromAccount, amt, req.Description, req.Category)

	echo := bankapi.Transaction{Type: string(Withdrawal), AccountNumber: req.FromAccount, Amount: amt, Category: req.Category, Description: req.Description}

	return v.submit(ctx, auth, Withdrawal, key, echo, func(ctx context.Context) (bankapi.Transaction, error) {
		if err := v.preflight(ctx, auth, from, amt); err != nil {
			return bankapi.Transaction{}, err
		}
		return v.remote.Withdraw(ctx, auth, payload)
	})
}

func (v *Validator) SubmitTransfer(ctx context.Context, auth bankapi.Auth, req TransferRequest, snapshot account.Snapshot) (bankapi.Transaction, error) {
	req = req.normalize()

	amt, err := checkAmount(req.Amount, v.limits.Transfer, "Transfer")
	if err != nil {
		return bankapi.Transaction{}, err
	}

	if req.FromAccount == req.ToAccount {
		return bankapi.Transaction{}, reject(SameAccount, "Source and destination accounts must be different.")
	}

	from, ok := snapshot.FindOpen(req.FromAccount)
	if !ok {
		return bankapi.Transaction{}, notOpen(req.FromAccount)
	}
	if _, ok := snapshot.FindOpen(req.ToAccount); !ok {
		return bankapi.Transaction{}, notOpen(req.ToAccount)
	}

	payload := bankapi.TransferPayload{
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      amt,
		Description: req.Description,
	}

	key := fmt.Sprintf("%d|%s|%s|%s|%s|%s", auth.UserID, Transfer, req.FromAccount, req.ToAccount, amt, req.Description)

	echo := bankapi.Transaction{Type: string(Transfer), AccountNumber: req.FromAccount, Amount: amt, Description: req.Description}

	return v.submit(ctx, auth, Transfer, key, echo, func(ctx context.Context) (bankapi.Transaction, error) {
		if err := v.preflight(ctx, auth, from, amt); err != nil {
			return bankapi.Transaction{}, err
		}
		return v.remote.Transfer(ctx, auth, payload)
	})
}

// submit runs the remote part of a submission. Identical submissions that
// arrive while one is in flight share its result instead of being sent twice.
// The shared call is detached from the cancellation of whoever started it.
// echo stands in for the transaction when the remote side accepted the request
// but its answer could not be read.
func (v *Validator) submit(ctx context.Context, auth bankapi.Auth, kind Kind, key string, echo bankapi.Transaction, send func(context.Context) (bankapi.Transaction, error)) (bankapi.Transaction, error) {
	res, err, shared := v.inflight.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)

		tx, err := send(ctx)

		var malformed *bankapi.MalformedResponseError
		if errors.As(err, &malformed) {
			log.WithError(err).Warnf("remote accepted %s for user %d with an unreadable answer", kind, auth.UserID)
			tx, err = echo, nil
		}

		if err != nil {
			if rej, ok := err.(*Rejection); ok {
				return nil, rej
			}
			log.WithError(err).Warnf("remote %s for user %d failed", kind, auth.UserID)
			return nil, remoteRejection(err, fmt.Sprintf("Failed to process %s.", kind))
		}

		log.Infof("%s %s of %s accepted for user %d", kind, tx.Number, tx.Amount, auth.UserID)

		if v.reconciler != nil {
			v.reconciler.Reconcile(ctx, auth, kind, tx)
		}

		return tx, nil
	})

	if shared {
		log.Infof("duplicate %s submission for user %d joined the one in flight", kind, auth.UserID)
	}

	if err != nil {
		return bankapi.Transaction{}, err
	}

	return res.(bankapi.Transaction), nil
}

// preflight compares against a freshly read balance. It only saves a round
// trip, the remote side still decides, so a failed read does not block.
func (v *Validator) preflight(ctx context.Context, auth bankapi.Auth, from account.Account, amt amount.Amount) error {
	balance, err := v.remote.AccountBalance(ctx, auth, from.ID)
	if err != nil {
		log.WithError(err).Warnf("pre-flight balance check for account %s skipped", from.MaskedNumber())
		return nil
	}

	if balance.LessThan(amt) {
		return reject(InsufficientBalance, "Insufficient balance in the selected account.")
	}

	return nil
}

func checkAmount(text string, ceiling amount.Amount, label string) (amount.Amount, error) {
	amt, err := amount.Parse(text)
	if err != nil || !amt.IsPositive() {
		return amount.Amount{}, reject(AmountNotPositive, "Amount must be a positive number.")
	}

	if amt.GreaterThan(ceiling) {
		return amount.Amount{}, reject(CeilingExceeded, "%s limit exceeded. Maximum amount is %s.", label, ceiling.Display(displayCurrency))
	}

	return amt, nil
}

func notOpen(number string) *Rejection {
	masked := account.Account{Number: number}.MaskedNumber()
	if masked == "" {
		return reject(AccountNotOpen, "Select an open account.")
	}
	return reject(AccountNotOpen, "Account %s is not open.", masked)
}
