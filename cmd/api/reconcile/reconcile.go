package reconcile

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/notification"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/transaction"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
)

type Remote interface {
	Accounts(ctx context.Context, auth bankapi.Auth) ([]account.Account, error)
}

type SnapshotStore interface {
	Get(ctx context.Context, userID int64) (account.Snapshot, bool)
	Put(ctx context.Context, userID int64, snap account.Snapshot) error
	Invalidate(ctx context.Context, userID int64) error
}

type Notifier interface {
	PublishCompleted(e notification.Completed) error
}

// Reconciler keeps the cached account snapshot in line with the remote side.
type Reconciler struct {
	remote    Remote
	snapshots SnapshotStore
	notifier  Notifier
}

func New(remote Remote, snapshots SnapshotStore, notifier Notifier) *Reconciler {
	return &Reconciler{remote: remote, snapshots: snapshots, notifier: notifier}
}

// Snapshot returns the cached snapshot, loading it from the remote API on a miss.
func (r *Reconciler) Snapshot(ctx context.Context, auth bankapi.Auth) (account.Snapshot, error) {
	if snap, ok := r.snapshots.Get(ctx, auth.UserID); ok {
		return snap, nil
	}
	return r.Refresh(ctx, auth)
}

func (r *Reconciler) Refresh(ctx context.Context, auth bankapi.Auth) (account.Snapshot, error) {
	accounts, err := r.remote.Accounts(ctx, auth)
	if err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}

	snap := account.Snapshot(accounts)
	if err := r.snapshots.Put(ctx, auth.UserID, snap); err != nil {
		log.WithError(err).Warnf("account snapshot of user %d not cached", auth.UserID)
	}

	return snap, nil
}

// Reconcile runs after an accepted submission. Failures here never undo the
// submission, a stale snapshot is dropped so the next read reloads it.
func (r *Reconciler) Reconcile(ctx context.Context, auth bankapi.Auth, kind transaction.Kind, tx bankapi.Transaction) {
	if _, err := r.Refresh(ctx, auth); err != nil {
		log.WithError(err).Warnf("reconciliation after %s %s failed", kind, tx.Number)
		if err := r.snapshots.Invalidate(ctx, auth.UserID); err != nil {
			log.WithError(err).Errorf("stale account snapshot of user %d could not be dropped", auth.UserID)
		}
	}

	if r.notifier == nil {
		return
	}

	err := r.notifier.PublishCompleted(notification.Completed{
		UserID:            auth.UserID,
		Kind:              string(kind),
		TransactionNumber: tx.Number,
		AccountNumber:     tx.AccountNumber,
		Amount:            tx.Amount,
		BalanceAfter:      tx.BalanceAfter,
		CreatedAt:         tx.CreatedAt,
	})
	if err != nil {
		log.WithError(err).Errorf("error sending notification to %s topic", notification.ExchangeName)
	}
}

// Updated swaps a changed account into the cached snapshot.
func (r *Reconciler) Updated(ctx context.Context, auth bankapi.Auth, acc account.Account) {
	snap, ok := r.snapshots.Get(ctx, auth.UserID)
	if !ok {
		return
	}
	if err := r.snapshots.Put(ctx, auth.UserID, snap.Replace(acc)); err != nil {
		log.WithError(err).Warnf("account snapshot of user %d not updated", auth.UserID)
	}
}

// Forget drops the cached snapshot, used on logout.
func (r *Reconciler) Forget(ctx context.Context, auth bankapi.Auth) {
	if err := r.snapshots.Invalidate(ctx, auth.UserID); err != nil {
		log.WithError(err).Warnf("account snapshot of user %d not dropped", auth.UserID)
	}
}
