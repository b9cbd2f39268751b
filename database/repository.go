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

package database

import (
	"context"
	"time"

	"github.com/pointforge/pointforge/model"
)

type IDataSource interface {
	account
	transaction
	task
	team
	referral
}

type account interface {
	CreateAccount(ctx context.Context, account *model.PointAccount) (*model.PointAccount, error)
	GetAccountByUserID(ctx context.Context, userID string) (*model.PointAccount, error)
	GetOrCreateAccount(ctx context.Context, userID string) (*model.PointAccount, error)
	ApplyMutation(ctx context.Context, account *model.PointAccount, txn *model.PointTransaction) error
}

type transaction interface {
	GetTransaction(ctx context.Context, transactionID string) (*model.PointTransaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (*model.PointTransaction, error)
	GetTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]*model.PointTransaction, error)
	SumTransactionAmounts(ctx context.Context, userID string) (int64, error)
}

type task interface {
	CreateTask(ctx context.Context, t *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	GetTaskByKey(ctx context.Context, taskKey string) (*model.Task, error)
	GetActiveTasks(ctx context.Context) ([]*model.Task, error)
	CreateTaskProgress(ctx context.Context, progress *model.TaskProgress) (*model.TaskProgress, error)
	GetTaskProgress(ctx context.Context, progressID string) (*model.TaskProgress, error)
	GetOpenTaskProgress(ctx context.Context, userID, taskID string) (*model.TaskProgress, error)
	GetLatestTaskProgress(ctx context.Context, userID, taskID string) (*model.TaskProgress, error)
	UpdateTaskProgress(ctx context.Context, progress *model.TaskProgress) error
}

type team interface {
	CreateTeam(ctx context.Context, t *model.Team) (*model.Team, error)
	GetTeam(ctx context.Context, teamID string) (*model.Team, error)
	AddToRewardPool(ctx context.Context, teamID string, amount int64) (*model.Team, error)
	ResetRewardPool(ctx context.Context, teamID string, distributedAt time.Time) error
	AddTeamMember(ctx context.Context, member *model.TeamMember) (*model.TeamMember, error)
	GetActiveMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error)
}

type referral interface {
	CreateReferralRelation(ctx context.Context, relation *model.ReferralRelation) (*model.ReferralRelation, error)
	GetReferralByReferee(ctx context.Context, refereeID string) (*model.ReferralRelation, error)
	GetReferralChain(ctx context.Context, refereeID string, maxDepth int) ([]*model.ReferralRelation, error)
	IncrementReferralRewards(ctx context.Context, relationID string, amount int64) error
}
