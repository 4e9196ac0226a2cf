// Package dedup remembers which card fingerprints have already been sent to
// the hub, so a connector can tell a new notification from a repeat of one the
// user has already seen.
package dedup

import (
	"context"
	"errors"
	"time"

	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/internal/common/logger"
	"hub-connectors/pkg/card"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Lookup for an unknown fingerprint.
var ErrNotFound = errors.New("fingerprint not found")

type Outcome int

const (
	New Outcome = iota
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "new"
}

// Result describes one Remember call. PreviousID is the card id first
// recorded under the hash and is empty for a new fingerprint.
type Result struct {
	Outcome    Outcome
	Hash       string
	CardID     string
	PreviousID string
}

type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

// Store records fingerprints in Redis. A Store without a client is disabled
// and reports every card as new.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewStore returns a store over client. Pass a nil client to disable it.
func NewStore(client redis.Cmdable, cfg Config, log logger.Logger) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "card:fp:"
	}
	return &Store{
		client: client,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
		logger: log.WithFields(map[string]interface{}{"component": "dedup"}),
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Remember records c's hash if it is not yet known. The first writer wins, so
// concurrent requests for the same card agree on a single id.
func (s *Store) Remember(ctx context.Context, c *card.Card) (Result, error) {
	res := Result{Outcome: New, Hash: c.Hash(), CardID: c.ID().String()}
	if !s.Enabled() {
		return res, nil
	}

	key := s.key(res.Hash)
	ok, err := s.client.SetNX(ctx, key, res.CardID, s.ttl).Result()
	if err != nil {
		return res, apperrors.NewFingerprintStoreFailedError(err)
	}
	if ok {
		return res, nil
	}

	prev, err := s.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET
		return res, nil
	case err != nil:
		return res, apperrors.NewFingerprintStoreFailedError(err)
	}

	res.Outcome = Duplicate
	res.PreviousID = prev
	s.logger.Debug("Duplicate card fingerprint", map[string]interface{}{
		"hash":       res.Hash,
		"cardId":     res.CardID,
		"previousId": prev,
	})
	return res, nil
}

// RememberAll calls Remember for every card in order and stops at the first
// store error.
func (s *Store) RememberAll(ctx context.Context, cards []*card.Card) ([]Result, error) {
	out := make([]Result, 0, len(cards))
	for _, c := range cards {
		res, err := s.Remember(ctx, c)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Lookup returns the card id recorded under hash.
func (s *Store) Lookup(ctx context.Context, hash string) (string, error) {
	if !s.Enabled() {
		return "", ErrNotFound
	}
	id, err := s.client.Get(ctx, s.key(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", apperrors.NewFingerprintStoreFailedError(err)
	}
	return id, nil
}

// Forget drops hash so the next card with it is reported as new.
func (s *Store) Forget(ctx context.Context, hash string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.client.Del(ctx, s.key(hash)).Err(); err != nil {
		return apperrors.NewFingerprintStoreFailedError(err)
	}
	return nil
}

func (s *Store) key(hash string) string {
	return s.prefix + hash
}
