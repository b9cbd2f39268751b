/*
Copyright 2024 Pointforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pointforge/pointforge/internal/cache"
	"github.com/pointforge/pointforge/model"
)

const keyPrefix = "idempotency:points:"

// DefaultTTL is how long a stored outcome shadows replays of the same key.
const DefaultTTL = 24 * time.Hour

// Guard is the key→outcome cache that makes balance mutations at-most-once
// under client retries. Outcomes are stored only after a successful commit;
// the ledger's unique idempotency-key column is the durable second guard.
type Guard struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewGuard(c cache.Cache, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{cache: c, ttl: ttl}
}

// DeriveKey builds a deterministic idempotency key from the parts of a
// logical request, for callers that do not supply their own.
func DeriveKey(parts ...string) string {
	payload, _ := json.Marshal(parts)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16]
}

// Check returns the previously stored outcome for the key, or nil when the
// key is unseen. A degraded idempotency store must not block the business
// path, so lookup failures are logged and treated as a miss.
func (g *Guard) Check(ctx context.Context, key string) (*model.PointTransaction, error) {
	if key == "" {
		return nil, nil
	}
	var txn model.PointTransaction
	if err := g.cache.Get(ctx, keyPrefix+key, &txn); err != nil {
		logrus.Warnf("idempotency check failed for key %s: %v", key, err)
		return nil, nil
	}
	if txn.TransactionID == "" {
		return nil, nil
	}
	return &txn, nil
}

// Store records the committed outcome under the key with the guard's TTL.
// Called strictly after the durable commit.
func (g *Guard) Store(ctx context.Context, key string, txn *model.PointTransaction) error {
	if key == "" {
		return nil
	}
	return g.cache.Set(ctx, keyPrefix+key, txn, g.ttl)
}

// Delete drops a stored outcome, used when a post-commit step needs to allow
// a retry.
func (g *Guard) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return g.cache.Delete(ctx, keyPrefix+key)
}
