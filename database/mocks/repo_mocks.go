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

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pointforge/pointforge/model"
)

// MockDataSource implements database.IDataSource for unit tests.
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) CreateAccount(ctx context.Context, account *model.PointAccount) (*model.PointAccount, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PointAccount), args.Error(1)
}

func (m *MockDataSource) GetAccountByUserID(ctx context.Context, userID string) (*model.PointAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PointAccount), args.Error(1)
}

func (m *MockDataSource) GetOrCreateAccount(ctx context.Context, userID string) (*model.PointAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PointAccount), args.Error(1)
}

func (m *MockDataSource) ApplyMutation(ctx context.Context, account *model.PointAccount, txn *model.PointTransaction) error {
	args := m.Called(ctx, account, txn)
	return args.Error(0)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, transactionID string) (*model.PointTransaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PointTransaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*model.PointTransaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PointTransaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]*model.PointTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PointTransaction), args.Error(1)
}

func (m *MockDataSource) SumTransactionAmounts(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) CreateTask(ctx context.Context, t *model.Task) (*model.Task, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockDataSource) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockDataSource) GetTaskByKey(ctx context.Context, taskKey string) (*model.Task, error) {
	args := m.Called(ctx, taskKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockDataSource) GetActiveTasks(ctx context.Context) ([]*model.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Task), args.Error(1)
}

func (m *MockDataSource) CreateTaskProgress(ctx context.Context, progress *model.TaskProgress) (*model.TaskProgress, error) {
	args := m.Called(ctx, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskProgress), args.Error(1)
}

func (m *MockDataSource) GetTaskProgress(ctx context.Context, progressID string) (*model.TaskProgress, error) {
	args := m.Called(ctx, progressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskProgress), args.Error(1)
}

func (m *MockDataSource) GetOpenTaskProgress(ctx context.Context, userID, taskID string) (*model.TaskProgress, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskProgress), args.Error(1)
}

func (m *MockDataSource) GetLatestTaskProgress(ctx context.Context, userID, taskID string) (*model.TaskProgress, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskProgress), args.Error(1)
}

func (m *MockDataSource) UpdateTaskProgress(ctx context.Context, progress *model.TaskProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockDataSource) CreateTeam(ctx context.Context, t *model.Team) (*model.Team, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockDataSource) GetTeam(ctx context.Context, teamID string) (*model.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockDataSource) AddToRewardPool(ctx context.Context, teamID string, amount int64) (*model.Team, error) {
	args := m.Called(ctx, teamID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockDataSource) ResetRewardPool(ctx context.Context, teamID string, distributedAt time.Time) error {
	args := m.Called(ctx, teamID, distributedAt)
	return args.Error(0)
}

func (m *MockDataSource) AddTeamMember(ctx context.Context, member *model.TeamMember) (*model.TeamMember, error) {
	args := m.Called(ctx, member)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *MockDataSource) GetActiveMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TeamMember), args.Error(1)
}

func (m *MockDataSource) CreateReferralRelation(ctx context.Context, relation *model.ReferralRelation) (*model.ReferralRelation, error) {
	args := m.Called(ctx, relation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralRelation), args.Error(1)
}

func (m *MockDataSource) GetReferralByReferee(ctx context.Context, refereeID string) (*model.ReferralRelation, error) {
	args := m.Called(ctx, refereeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralRelation), args.Error(1)
}

func (m *MockDataSource) GetReferralChain(ctx context.Context, refereeID string, maxDepth int) ([]*model.ReferralRelation, error) {
	args := m.Called(ctx, refereeID, maxDepth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ReferralRelation), args.Error(1)
}

func (m *MockDataSource) IncrementReferralRewards(ctx context.Context, relationID string, amount int64) error {
	args := m.Called(ctx, relationID, amount)
	return args.Error(0)
}
