package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
)

// Snapshots keeps the last known account list per user.
type Snapshots struct {
	store *cache.Cache
	ttl   time.Duration
}

func NewSnapshots(store *cache.Cache, ttl time.Duration) *Snapshots {
	return &Snapshots{store: store, ttl: ttl}
}

func snapshotKey(userID int64) string {
	return fmt.Sprintf("accounts:%d", userID)
}

func (s *Snapshots) Get(ctx context.Context, userID int64) (account.Snapshot, bool) {
	var b []byte
	if err := s.store.Get(ctx, snapshotKey(userID), &b); err != nil {
		if err != cache.ErrCacheMiss {
			log.Warnf("failed to get account snapshot from cache for user %d: %v", userID, err)
		}
		return nil, false
	}

	var snap account.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		log.Warnf("discarding unreadable account snapshot for user %d: %v", userID, err)
		return nil, false
	}

	return snap, true
}

func (s *Snapshots) Put(ctx context.Context, userID int64, snap account.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode account snapshot")
	}

	err = s.store.Set(&cache.Item{
		Ctx:   ctx,
		Key:   snapshotKey(userID),
		Value: b,
		TTL:   s.ttl,
	})
	if err != nil {
		return errors.Wrap(err, "store account snapshot")
	}

	return nil
}

func (s *Snapshots) Invalidate(ctx context.Context, userID int64) error {
	err := s.store.Delete(ctx, snapshotKey(userID))
	if err != nil && err != cache.ErrCacheMiss {
		return errors.Wrap(err, "delete account snapshot")
	}
	return nil
}
