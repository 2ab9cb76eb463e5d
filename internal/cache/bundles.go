package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// DefaultBundleTTL is how long a stored bundle lives when no TTL is configured
const DefaultBundleTTL = time.Hour

const (
	bundleKeyPrefix = "bundle:"
	scanBatchSize   = 100
)

// BundleStore persists bundles as JSON under bundle:{id} with an expiry
type BundleStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewBundleStore creates a bundle store. A non-positive ttl uses DefaultBundleTTL.
func NewBundleStore(client redis.Cmdable, ttl time.Duration) *BundleStore {
	if ttl <= 0 {
		ttl = DefaultBundleTTL
	}
	return &BundleStore{client: client, ttl: ttl}
}

func bundleKey(id string) string {
	return bundleKeyPrefix + id
}

// Save writes the bundle, replacing any previous version and resetting its expiry
func (s *BundleStore) Save(ctx context.Context, b *types.Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	if err := s.client.Set(ctx, bundleKey(b.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save bundle %s: %w", b.ID, err)
	}
	return nil
}

// Get retrieves a bundle by id. A missing or expired bundle returns nil, nil.
func (s *BundleStore) Get(ctx context.Context, id string) (*types.Bundle, error) {
	data, err := s.client.Get(ctx, bundleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bundle %s: %w", id, err)
	}
	var b types.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle %s: %w", id, err)
	}
	return &b, nil
}

// List returns stored bundles newest first (ties by id), skipping offset and returning at most limit
func (s *BundleStore) List(ctx context.Context, limit, offset int) ([]types.Bundle, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, bundleKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan bundles: %w", err)
	}
	if len(keys) == 0 {
		return []types.Bundle{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}

	bundles := make([]types.Bundle, 0, len(values))
	for i, v := range values {
		// keys can expire between SCAN and MGET
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var b types.Bundle
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("failed to decode bundle %s: %w", strings.TrimPrefix(keys[i], bundleKeyPrefix), err)
		}
		bundles = append(bundles, b)
	}

	sort.Slice(bundles, func(i, j int) bool {
		if !bundles[i].CreatedAt.Equal(bundles[j].CreatedAt) {
			return bundles[i].CreatedAt.After(bundles[j].CreatedAt)
		}
		return bundles[i].ID < bundles[j].ID
	})
	return paginate(bundles, limit, offset), nil
}

// Delete removes a bundle and reports whether it existed
func (s *BundleStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, bundleKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete bundle %s: %w", id, err)
	}
	return n > 0, nil
}

func paginate(bundles []types.Bundle, limit, offset int) []types.Bundle {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(bundles) {
		return []types.Bundle{}
	}
	end := len(bundles)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return bundles[offset:end]
}
