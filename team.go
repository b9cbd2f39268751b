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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pointforge/pointforge/config"
	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/internal/idempotency"
	redlock "github.com/pointforge/pointforge/internal/lock"
	"github.com/pointforge/pointforge/model"
)

// DistributionResult is the outcome of one reward pool distribution.
type DistributionResult struct {
	TeamID        string             `json:"team_id"`
	Pool          int64              `json:"pool"`
	Allocations   []model.Allocation `json:"allocations"`
	DistributedAt time.Time          `json:"distributed_at"`
}

// CreateTeam registers a team with an empty reward pool.
func (p *Pointforge) CreateTeam(ctx context.Context, name string) (*model.Team, error) {
	if name == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "team name is required", nil)
	}
	return p.datasource.CreateTeam(ctx, &model.Team{
		TeamID:    model.GenerateUUIDWithSuffix("tm"),
		Name:      name,
		CreatedAt: time.Now(),
	})
}

// JoinTeam adds a user as an active member.
func (p *Pointforge) JoinTeam(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	if _, err := p.datasource.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return p.datasource.AddTeamMember(ctx, &model.TeamMember{
		MemberID: model.GenerateUUIDWithSuffix("mbr"),
		TeamID:   teamID,
		UserID:   userID,
		Status:   model.MemberActive,
		JoinedAt: time.Now(),
	})
}

// AddToRewardPool credits the team pool. Nothing reaches member accounts
// until the pool is distributed.
func (p *Pointforge) AddToRewardPool(ctx context.Context, teamID string, amount int64) (*model.Team, error) {
	if amount <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "pool amount must be positive", nil)
	}
	return p.datasource.AddToRewardPool(ctx, teamID, amount)
}

// DistributeRewardPool splits the team's pool across its active members in
// proportion to contribution points and credits each share through the
// normal mutation path. The split is exact: shares always sum to the pool.
func (p *Pointforge) DistributeRewardPool(ctx context.Context, teamID string) (*DistributionResult, error) {
	ctx, span := tracer.Start(ctx, "Distributing reward pool")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	locker := redlock.NewLocker(p.redis, fmt.Sprintf("lock:points:distribute:%s", teamID), model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, cfg.Points.LockLease(), cfg.Points.LockWaitTimeout()); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrBusy, fmt.Sprintf("team %s distribution in progress", teamID), err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Error("unlock error: ", err)
		}
	}()

	team, err := p.datasource.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if team.RewardPool <= 0 {
		// An empty pool distributes nothing.
		return &DistributionResult{TeamID: teamID, Pool: 0, DistributedAt: now}, nil
	}
	if team.LastDistributionAt != nil {
		elapsed := now.Sub(*team.LastDistributionAt)
		if elapsed < cfg.Points.DistributionInterval() {
			return nil, apierror.NewAPIError(apierror.ErrTooSoon,
				fmt.Sprintf("team %s distribution available in %s", teamID,
					(cfg.Points.DistributionInterval()-elapsed).Round(time.Second)), nil)
		}
	}

	members, err := p.datasource.GetActiveMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("team %s has no active members", teamID), nil)
	}

	allocations := ComputeShares(team.RewardPool, members)

	// The round identity is derived from state that only changes when a
	// distribution completes, so a rerun after a mid-loop failure replays
	// the credits already made instead of paying them again.
	lastDistributed := "never"
	if team.LastDistributionAt != nil {
		lastDistributed = team.LastDistributionAt.UTC().Format(time.RFC3339Nano)
	}
	distributionID := idempotency.DeriveKey("pool-round", teamID,
		fmt.Sprintf("%d", team.RewardPool), lastDistributed)
	for _, allocation := range allocations {
		if allocation.Share == 0 {
			continue
		}
		_, err := p.AddPoints(ctx, MutationRequest{
			UserID:         allocation.UserID,
			Type:           model.TypeTeamReward,
			Amount:         allocation.Share,
			Description:    fmt.Sprintf("reward pool share for team %s", team.Name),
			RelatedTeamID:  teamID,
			IdempotencyKey: idempotency.DeriveKey("pool", distributionID, allocation.UserID),
		})
		if err != nil {
			return nil, logAndRecordError(span, "crediting pool share: ", err)
		}
	}

	if err := p.datasource.ResetRewardPool(ctx, teamID, now); err != nil {
		return nil, logAndRecordError(span, "resetting reward pool: ", err)
	}

	result := &DistributionResult{
		TeamID:        teamID,
		Pool:          team.RewardPool,
		Allocations:   allocations,
		DistributedAt: now,
	}
	if err := SendWebhook(NewWebhook{Event: EventPoolDistributed, Payload: result}); err != nil {
		logrus.Error("sending webhook: ", err)
	}
	return result, nil
}

// ComputeShares apportions pool across members proportionally to their
// contribution points using largest remainders, so the integer shares sum
// exactly to the pool. With zero total contribution the pool splits evenly
// and the leftover goes to the earliest members in user id order.
func ComputeShares(pool int64, members []*model.TeamMember) []model.Allocation {
	allocations := make([]model.Allocation, len(members))
	var totalContribution int64
	for _, m := range members {
		totalContribution += m.ContributionPoints
	}

	if totalContribution == 0 {
		base := pool / int64(len(members))
		leftover := pool % int64(len(members))
		for i, m := range members {
			share := base
			if int64(i) < leftover {
				share++
			}
			allocations[i] = model.Allocation{
				UserID:       m.UserID,
				Share:        share,
				Contribution: m.ContributionPoints,
				Ratio:        1.0 / float64(len(members)),
			}
		}
		return allocations
	}

	poolDecimal := decimal.NewFromInt(pool)
	totalDecimal := decimal.NewFromInt(totalContribution)
	remainders := make([]decimal.Decimal, len(members))
	var assigned int64
	for i, m := range members {
		exact := poolDecimal.Mul(decimal.NewFromInt(m.ContributionPoints)).Div(totalDecimal)
		floor := exact.Floor()
		remainders[i] = exact.Sub(floor)
		share := floor.IntPart()
		assigned += share
		ratio, _ := decimal.NewFromInt(m.ContributionPoints).Div(totalDecimal).Float64()
		allocations[i] = model.Allocation{
			UserID:       m.UserID,
			Share:        share,
			Contribution: m.ContributionPoints,
			Ratio:        ratio,
		}
	}

	// Hand the leftover units to the largest fractional remainders. Ties
	// break on user id so reruns produce identical allocations.
	leftover := pool - assigned
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		cmp := remainders[order[a]].Cmp(remainders[order[b]])
		if cmp != 0 {
			return cmp > 0
		}
		return allocations[order[a]].UserID < allocations[order[b]].UserID
	})
	for i := int64(0); i < leftover; i++ {
		allocations[order[i]].Share++
	}
	return allocations
}
