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
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pointforge/pointforge/model"
)

// AddPointsRequest credits points to a user.
type AddPointsRequest struct {
	UserID            string `json:"user_id"`
	Type              string `json:"type"`
	Amount            int64  `json:"amount"`
	Description       string `json:"description"`
	RelatedUserID     string `json:"related_user_id"`
	RelatedTaskID     string `json:"related_task_id"`
	RelatedTeamID     string `json:"related_team_id"`
	RelatedQuestionID string `json:"related_question_id"`
	IdempotencyKey    string `json:"idempotency_key"`
}

func (r *AddPointsRequest) ValidateAddPoints() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.By(knownTransactionType)),
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
	)
}

// SpendRequest debits points from a user.
type SpendRequest struct {
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (r *SpendRequest) ValidateSpend() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.By(knownTransactionType)),
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
	)
}

type ExchangeRequest struct {
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	Kind           string `json:"kind"`
	Target         string `json:"target"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (r *ExchangeRequest) ValidateExchange() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
		validation.Field(&r.Kind, validation.Required, validation.In("token", "nft", "privilege")),
		validation.Field(&r.Target, validation.Required),
	)
}

func knownTransactionType(value interface{}) error {
	name, _ := value.(string)
	_, err := model.SourceOf(model.TransactionType(name))
	return err
}

// CreateTaskRequest registers a task definition.
type CreateTaskRequest struct {
	TaskKey          string `json:"task_key"`
	Title            string `json:"title"`
	Cadence          string `json:"cadence"`
	TargetValue      int64  `json:"target_value"`
	RewardPoints     int64  `json:"reward_points"`
	BonusPoints      int64  `json:"bonus_points"`
	MinLevelRequired int    `json:"min_level_required"`
	MaxCompletions   int    `json:"max_completions"`
	IsActive         bool   `json:"is_active"`
}

func (r *CreateTaskRequest) ValidateCreateTask() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TaskKey, validation.Required),
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Cadence, validation.Required, validation.In(
			string(model.CadenceDaily), string(model.CadenceWeekly), string(model.CadenceOnce))),
		validation.Field(&r.TargetValue, validation.Required, validation.Min(1)),
	)
}

// AssignTaskRequest opens progress for a user on a task.
type AssignTaskRequest struct {
	UserID    string `json:"user_id"`
	UserLevel int    `json:"user_level"`
}

func (r *AssignTaskRequest) ValidateAssignTask() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
	)
}

// UpdateProgressRequest advances progress on a task.
type UpdateProgressRequest struct {
	UserID    string `json:"user_id"`
	Increment int64  `json:"increment"`
}

func (r *UpdateProgressRequest) ValidateUpdateProgress() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Increment, validation.Required, validation.Min(1)),
	)
}

// ClaimRewardRequest pays out a completed task.
type ClaimRewardRequest struct {
	UserID string `json:"user_id"`
}

func (r *ClaimRewardRequest) ValidateClaimReward() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
	)
}

// CreateTeamRequest registers a team.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

func (r *CreateTeamRequest) ValidateCreateTeam() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
	)
}

// JoinTeamRequest adds a member to a team.
type JoinTeamRequest struct {
	UserID string `json:"user_id"`
}

func (r *JoinTeamRequest) ValidateJoinTeam() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
	)
}

// FundPoolRequest credits a team's reward pool.
type FundPoolRequest struct {
	Amount int64 `json:"amount"`
}

func (r *FundPoolRequest) ValidateFundPool() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
	)
}

// LinkReferralRequest records who invited a user.
type LinkReferralRequest struct {
	RefereeID  string `json:"referee_id"`
	ReferrerID string `json:"referrer_id"`
}

func (r *LinkReferralRequest) ValidateLinkReferral() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RefereeID, validation.Required),
		validation.Field(&r.ReferrerID, validation.Required),
	)
}
