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
	"fmt"
	"time"
)

// PointAccount is the durable per-user balance row. It is created lazily on
// the first mutation, mutated only inside the reward mutator's critical
// section, and never deleted. Version guards concurrent writers with
// optimistic locking at the store level.
type PointAccount struct {
	AccountID          string    `json:"account_id"`
	UserID             string    `json:"user_id"`
	AvailablePoints    int64     `json:"available_points"`
	FrozenPoints       int64     `json:"frozen_points"`
	TotalEarned        int64     `json:"total_earned"`
	TotalSpent         int64     `json:"total_spent"`
	PointsFromReferral int64     `json:"points_from_referral"`
	PointsFromTask     int64     `json:"points_from_task"`
	PointsFromQuiz     int64     `json:"points_from_quiz"`
	PointsFromTeam     int64     `json:"points_from_team"`
	PointsFromPurchase int64     `json:"points_from_purchase"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewPointAccount returns a zeroed account for the given user.
func NewPointAccount(userID string) *PointAccount {
	return &PointAccount{
		AccountID: GenerateUUIDWithSuffix("acc"),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// Apply folds a transaction into the account: it moves the available balance,
// updates the earned/spent totals, routes the amount into the per-source
// subtotal, and stamps BalanceAfter on the transaction. The account invariant
// available_points >= 0 is enforced here as the last line of defense; spend
// paths are expected to preflight sufficiency for a friendlier failure.
func (a *PointAccount) Apply(txn *PointTransaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	if txn.UserID != a.UserID {
		return fmt.Errorf("transaction user %s does not match account user %s", txn.UserID, a.UserID)
	}

	newBalance := a.AvailablePoints + txn.Amount
	if newBalance < 0 {
		return fmt.Errorf("applying %d to balance %d would overdraw the account", txn.Amount, a.AvailablePoints)
	}

	source, err := SourceOf(txn.Type)
	if err != nil {
		return err
	}

	a.AvailablePoints = newBalance
	if txn.Amount > 0 {
		a.TotalEarned += txn.Amount
	} else {
		a.TotalSpent += -txn.Amount
	}

	switch source {
	case SourceReferral:
		a.PointsFromReferral += txn.Amount
	case SourceTask:
		a.PointsFromTask += txn.Amount
	case SourceQuiz:
		a.PointsFromQuiz += txn.Amount
	case SourceTeam:
		a.PointsFromTeam += txn.Amount
	case SourcePurchase:
		a.PointsFromPurchase += txn.Amount
	case SourceNone:
	}

	txn.BalanceAfter = newBalance
	txn.Status = StatusApplied
	return nil
}
