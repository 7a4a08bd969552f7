package testcache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	c "github.com/tamasbrandstadter/banking-gateway/internal/cache"
)

// Open starts an in-process redis and returns a connected cache. Everything is
// torn down when the test ends.
func Open(t *testing.T) (*c.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	r := redis.NewRing(&redis.RingOptions{
		Addrs: map[string]string{
			"server1": mr.Addr(),
		},
	})
	t.Cleanup(func() {
		_ = r.Close()
	})

	return &c.Redis{
		Client: r,
		Store:  c.New(r, 100, time.Minute),
	}, mr
}
