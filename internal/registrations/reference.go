package registrations

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refPrefix     = "REG"
	refDateLayout = "20060102"
	refRandomLen  = 6
	// crockford base32 without I, L, O, U.
	refAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// ReferenceGenerator produces human-facing application references.
type ReferenceGenerator interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

// RandomReferences issues REG-YYYYMMDD-XXXXXX references from crypto/rand.
type RandomReferences struct{}

// Next returns a new random reference for the UTC day of now.
func (RandomReferences) Next(ctx context.Context, now time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var raw [refRandomLen]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	suffix := make([]byte, refRandomLen)
	for i, b := range raw {
		suffix[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", refPrefix, now.UTC().Format(refDateLayout), suffix), nil
}

// RedisSequence issues REG-YYYYMMDD-NNNNNN references from a per-day counter.
type RedisSequence struct {
	Client redis.Cmdable
	// KeyPrefix defaults to "registration:ref:".
	KeyPrefix string
	// TTL defaults to 48h.
	TTL time.Duration
}

// Next increments the counter for the UTC day of now.
func (s *RedisSequence) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format(refDateLayout)
	prefix := s.KeyPrefix
	if prefix == "" {
		prefix = "registration:ref:"
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	key := prefix + day

	var incr *redis.IntCmd
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis reference sequence: %w", err)
	}
	return fmt.Sprintf("%s-%s-%06d", refPrefix, day, incr.Val()), nil
}

var (
	_ ReferenceGenerator = RandomReferences{}
	_ ReferenceGenerator = (*RedisSequence)(nil)
)
