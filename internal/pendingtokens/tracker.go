package pendingtokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/redis"
)

// Tracker remembers the most recent payment token per anonymous visitor
// so the return flow can recover a token the browser dropped on the way
// back from the payment page.
type Tracker interface {
	Track(ctx context.Context, fingerprint, token string) error
	Resolve(ctx context.Context, fingerprint string) (string, error)
}

type tracker struct {
	store  redis.PendingTokenStore
	ttl    time.Duration
	logger *logger.Logger
}

// NewTracker builds the tracker. TTL bounds how long a pending token is
// recoverable; payments older than that must be retried from scratch.
func NewTracker(store redis.PendingTokenStore, ttl time.Duration, logg *logger.Logger) (Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("pending token store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &tracker{store: store, ttl: ttl, logger: logg}, nil
}

// Fingerprint derives a stable anonymous identifier from the request's
// remote address and user agent. It is a correlation hint, not an
// authentication mechanism.
func Fingerprint(remoteIP, userAgent string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(remoteIP) + "|" + strings.TrimSpace(userAgent)))
	return hex.EncodeToString(sum[:])
}

func (t *tracker) Track(ctx context.Context, fingerprint, token string) error {
	if fingerprint == "" || token == "" {
		return nil
	}
	key := t.store.PendingTokenKey(fingerprint)
	if err := t.store.Set(ctx, key, token, t.ttl); err != nil {
		// Losing the hint only degrades the return flow; the payment
		// itself is unaffected.
		t.logger.Warn(ctx, "could not track pending token: "+err.Error())
		return err
	}
	return nil
}

func (t *tracker) Resolve(ctx context.Context, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", nil
	}
	token, err := t.store.Get(ctx, t.store.PendingTokenKey(fingerprint))
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}
