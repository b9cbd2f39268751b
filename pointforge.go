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

package pointforge

import (
	"context"
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pointforge/pointforge/config"
	"github.com/pointforge/pointforge/database"
	"github.com/pointforge/pointforge/internal/cache"
	"github.com/pointforge/pointforge/internal/idempotency"
	redis_db "github.com/pointforge/pointforge/internal/redis-db"
	"github.com/pointforge/pointforge/model"
)

// SQLFiles holds the embedded schema migrations consumed by the migrate
// command.
//
//go:embed sql/*.sql
var SQLFiles embed.FS

// Pointforge is the economic core of the rewards platform. All point
// mutations flow through it so the ledger and the account projections
// stay consistent.
type Pointforge struct {
	queue       *Queue
	redis       redis.UniversalClient
	cache       cache.Cache
	idempotency *idempotency.Guard
	datasource  database.IDataSource
}

// NewPointforge wires the service from the global configuration: database
// datasource, Redis client, cache tier, idempotency guard and task queue.
func NewPointforge(db database.IDataSource) (*Pointforge, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	cacheTier := cache.NewCacheWithClient(redisClient.Client())
	guard := idempotency.NewGuard(cacheTier, configuration.Points.IdempotencyTTL())
	newQueue := NewQueue(configuration)

	return &Pointforge{
		datasource:  db,
		redis:       redisClient.Client(),
		cache:       cacheTier,
		idempotency: guard,
		queue:       newQueue,
	}, nil
}

// GetAccount returns the point account projection for a user, creating an
// empty account on first access.
func (p *Pointforge) GetAccount(ctx context.Context, userID string) (*model.PointAccount, error) {
	return p.datasource.GetOrCreateAccount(ctx, userID)
}

// GetTransactionHistory returns a page of ledger entries for a user, newest
// first.
func (p *Pointforge) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]*model.PointTransaction, error) {
	return p.datasource.GetTransactionsByUser(ctx, userID, limit, offset)
}

const leaderboardKey = "points:leaderboard"

// RefreshLeaderboardEntry recomputes a user's leaderboard score from the
// account projection. Runs asynchronously off the mutation path.
func (p *Pointforge) RefreshLeaderboardEntry(ctx context.Context, userID string) error {
	account, err := p.datasource.GetAccountByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return p.redis.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(account.TotalEarned),
		Member: userID,
	}).Err()
}

// LeaderboardEntry pairs a user with their lifetime earned points.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// GetLeaderboard returns the top earners, highest first.
func (p *Pointforge) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	scores, err := p.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(scores))
	for _, z := range scores {
		userID, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{UserID: userID, Points: int64(z.Score)})
	}
	return entries, nil
}

// Reconcile checks a user's ledger against the account projection. A nonzero
// drift means an entry was written outside the mutation path.
func (p *Pointforge) Reconcile(ctx context.Context, userID string) (int64, error) {
	account, err := p.datasource.GetAccountByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	sum, err := p.datasource.SumTransactionAmounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.AvailablePoints - sum, nil
}
