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
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/pointforge/pointforge/config"
	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/internal/cache"
	"github.com/pointforge/pointforge/internal/idempotency"
	redis_db "github.com/pointforge/pointforge/internal/redis-db"
	"github.com/pointforge/pointforge/model"
)

// memoryDataSource is an in-memory stand-in for the postgres datasource. It
// reproduces the behaviors the service depends on: optimistic versioning,
// the unique idempotency key constraint and deterministic member ordering.
type memoryDataSource struct {
	mu           sync.Mutex
	accounts     map[string]*model.PointAccount
	transactions []*model.PointTransaction
	tasks        map[string]*model.Task
	progress     map[string]*model.TaskProgress
	teams        map[string]*model.Team
	members      map[string][]*model.TeamMember
	referrals    map[string]*model.ReferralRelation
}

func newMemoryDataSource() *memoryDataSource {
	return &memoryDataSource{
		accounts:  make(map[string]*model.PointAccount),
		tasks:     make(map[string]*model.Task),
		progress:  make(map[string]*model.TaskProgress),
		teams:     make(map[string]*model.Team),
		members:   make(map[string][]*model.TeamMember),
		referrals: make(map[string]*model.ReferralRelation),
	}
}

func copyAccount(a *model.PointAccount) *model.PointAccount {
	c := *a
	return &c
}

func copyProgress(p *model.TaskProgress) *model.TaskProgress {
	c := *p
	return &c
}

func (m *memoryDataSource) CreateAccount(_ context.Context, account *model.PointAccount) (*model.PointAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.UserID]; ok {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "point account already exists", nil)
	}
	m.accounts[account.UserID] = copyAccount(account)
	return account, nil
}

func (m *memoryDataSource) GetAccountByUserID(_ context.Context, userID string) (*model.PointAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[userID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "point account not found", nil)
	}
	return copyAccount(account), nil
}

func (m *memoryDataSource) GetOrCreateAccount(ctx context.Context, userID string) (*model.PointAccount, error) {
	account, err := m.GetAccountByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}
	return m.CreateAccount(ctx, model.NewPointAccount(userID))
}

func (m *memoryDataSource) ApplyMutation(_ context.Context, account *model.PointAccount, txn *model.PointTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.accounts[account.UserID]
	if !ok || stored.Version != account.Version {
		return apierror.NewAPIError(apierror.ErrConflict, "account changed concurrently, retry the operation", nil)
	}
	if txn.IdempotencyKey != "" {
		for _, existing := range m.transactions {
			if existing.IdempotencyKey == txn.IdempotencyKey {
				return apierror.NewAPIError(apierror.ErrConflict,
					fmt.Sprintf("operation %s already recorded", txn.IdempotencyKey), nil)
			}
		}
	}
	next := copyAccount(account)
	next.Version++
	m.accounts[account.UserID] = next
	account.Version++
	storedTxn := *txn
	m.transactions = append(m.transactions, &storedTxn)
	return nil
}

func (m *memoryDataSource) GetTransaction(_ context.Context, transactionID string) (*model.PointTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.transactions {
		if txn.TransactionID == transactionID {
			c := *txn
			return &c, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "point transaction not found", nil)
}

func (m *memoryDataSource) GetTransactionByIdempotencyKey(_ context.Context, key string) (*model.PointTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.transactions {
		if txn.IdempotencyKey == key {
			c := *txn
			return &c, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "point transaction not found", nil)
}

func (m *memoryDataSource) GetTransactionsByUser(_ context.Context, userID string, limit, offset int) ([]*model.PointTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var matched []*model.PointTransaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].UserID == userID {
			c := *m.transactions[i]
			matched = append(matched, &c)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memoryDataSource) SumTransactionAmounts(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, txn := range m.transactions {
		if txn.UserID == userID {
			sum += txn.Amount
		}
	}
	return sum, nil
}

func (m *memoryDataSource) CreateTask(_ context.Context, t *model.Task) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.TaskID] = t
	return t, nil
}

func (m *memoryDataSource) GetTask(_ context.Context, taskID string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "task not found", nil)
	}
	return t, nil
}

func (m *memoryDataSource) GetTaskByKey(_ context.Context, taskKey string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.TaskKey == taskKey {
			return t, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "task not found", nil)
}

func (m *memoryDataSource) GetActiveTasks(_ context.Context) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tasks []*model.Task
	for _, t := range m.tasks {
		if t.IsActive {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (m *memoryDataSource) CreateTaskProgress(_ context.Context, progress *model.TaskProgress) (*model.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[progress.ProgressID] = copyProgress(progress)
	return progress, nil
}

func (m *memoryDataSource) GetTaskProgress(_ context.Context, progressID string) (*model.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "task progress not found", nil)
	}
	return copyProgress(p), nil
}

func (m *memoryDataSource) GetOpenTaskProgress(_ context.Context, userID, taskID string) (*model.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *model.TaskProgress
	for _, p := range m.progress {
		if p.UserID != userID || p.TaskID != taskID {
			continue
		}
		if p.Status == model.ProgressRewarded || p.Status == model.ProgressExpired {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "task progress not found", nil)
	}
	return copyProgress(newest), nil
}

func (m *memoryDataSource) GetLatestTaskProgress(_ context.Context, userID, taskID string) (*model.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *model.TaskProgress
	for _, p := range m.progress {
		if p.UserID != userID || p.TaskID != taskID {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "task progress not found", nil)
	}
	return copyProgress(newest), nil
}

func (m *memoryDataSource) UpdateTaskProgress(_ context.Context, progress *model.TaskProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.progress[progress.ProgressID]
	if !ok || stored.Version != progress.Version {
		return apierror.NewAPIError(apierror.ErrConflict, "task progress changed concurrently, retry the operation", nil)
	}
	next := copyProgress(progress)
	next.Version++
	m.progress[progress.ProgressID] = next
	progress.Version++
	return nil
}

func (m *memoryDataSource) CreateTeam(_ context.Context, t *model.Team) (*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.TeamID] = t
	return t, nil
}

func (m *memoryDataSource) GetTeam(_ context.Context, teamID string) (*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "team not found", nil)
	}
	c := *t
	return &c, nil
}

func (m *memoryDataSource) AddToRewardPool(_ context.Context, teamID string, amount int64) (*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "team not found", nil)
	}
	t.RewardPool += amount
	c := *t
	return &c, nil
}

func (m *memoryDataSource) ResetRewardPool(_ context.Context, teamID string, distributedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "team not found", nil)
	}
	t.RewardPool = 0
	at := distributedAt
	t.LastDistributionAt = &at
	return nil
}

func (m *memoryDataSource) AddTeamMember(_ context.Context, member *model.TeamMember) (*model.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.TeamID] = append(m.members[member.TeamID], member)
	return member, nil
}

func (m *memoryDataSource) GetActiveMembers(_ context.Context, teamID string) ([]*model.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*model.TeamMember
	for _, member := range m.members[teamID] {
		if member.Status == model.MemberActive {
			active = append(active, member)
		}
	}
	sort.Slice(active, func(a, b int) bool { return active[a].UserID < active[b].UserID })
	return active, nil
}

func (m *memoryDataSource) CreateReferralRelation(_ context.Context, relation *model.ReferralRelation) (*model.ReferralRelation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.referrals[relation.RefereeID]; ok {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "referral relation already exists", nil)
	}
	m.referrals[relation.RefereeID] = relation
	return relation, nil
}

func (m *memoryDataSource) GetReferralByReferee(_ context.Context, refereeID string) (*model.ReferralRelation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	relation, ok := m.referrals[refereeID]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "referral relation not found", nil)
	}
	return relation, nil
}

func (m *memoryDataSource) GetReferralChain(ctx context.Context, refereeID string, maxDepth int) ([]*model.ReferralRelation, error) {
	var chain []*model.ReferralRelation
	current := refereeID
	for depth := 0; depth < maxDepth; depth++ {
		relation, err := m.GetReferralByReferee(ctx, current)
		if apierror.Is(err, apierror.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, relation)
		current = relation.ReferrerID
	}
	return chain, nil
}

func (m *memoryDataSource) IncrementReferralRewards(_ context.Context, relationID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, relation := range m.referrals {
		if relation.RelationID == relationID {
			relation.TotalRewardsGiven += amount
			return nil
		}
	}
	return apierror.NewAPIError(apierror.ErrNotFound, "referral relation not found", nil)
}

// newTestPointforge builds a service instance against miniredis and the
// in-memory datasource.
func newTestPointforge(t *testing.T) (*Pointforge, *memoryDataSource) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/pointforge"},
		Redis:      config.RedisConfig{Dns: mr.Addr()},
	}
	config.MockConfig(cfg)

	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)

	ds := newMemoryDataSource()
	cacheTier := cache.NewCacheWithClient(redisClient.Client())
	service := &Pointforge{
		datasource:  ds,
		redis:       redisClient.Client(),
		cache:       cacheTier,
		idempotency: idempotency.NewGuard(cacheTier, idempotency.DefaultTTL),
		queue:       NewQueue(cfg),
	}
	return service, ds
}
