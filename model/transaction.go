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

// TransactionType enumerates every balance-changing event the ledger accepts.
type TransactionType string

const (
	TypeRegisterReward TransactionType = "REGISTER_REWARD"
	TypeReferralReward TransactionType = "REFERRAL_REWARD"
	TypeReferralL1     TransactionType = "REFERRAL_L1"
	TypeReferralL2     TransactionType = "REFERRAL_L2"
	TypeTaskReward     TransactionType = "TASK_REWARD"
	TypeTaskDaily      TransactionType = "TASK_DAILY"
	TypeTaskWeekly     TransactionType = "TASK_WEEKLY"
	TypeTaskOnce       TransactionType = "TASK_ONCE"
	TypeQuizCorrect    TransactionType = "QUIZ_CORRECT"
	TypeTeamReward     TransactionType = "TEAM_REWARD"
	TypePurchase       TransactionType = "PURCHASE"
	TypeAdminGrant     TransactionType = "ADMIN_GRANT"
	TypeExchangeToken  TransactionType = "EXCHANGE_TOKEN"
	TypeSpendItem      TransactionType = "SPEND_ITEM"
)

// AllTransactionTypes lists every member of the enum. transactionSources is
// checked against it at package init so a new type cannot ship without an
// explicit source routing decision.
var AllTransactionTypes = []TransactionType{
	TypeRegisterReward,
	TypeReferralReward,
	TypeReferralL1,
	TypeReferralL2,
	TypeTaskReward,
	TypeTaskDaily,
	TypeTaskWeekly,
	TypeTaskOnce,
	TypeQuizCorrect,
	TypeTeamReward,
	TypePurchase,
	TypeAdminGrant,
	TypeExchangeToken,
	TypeSpendItem,
}

// PointSource names the per-source subtotal a transaction amount is routed
// into on the account row. SourceNone routes into no subtotal (spends,
// administrative grants).
type PointSource string

const (
	SourceReferral PointSource = "referral"
	SourceTask     PointSource = "task"
	SourceQuiz     PointSource = "quiz"
	SourceTeam     PointSource = "team"
	SourcePurchase PointSource = "purchase"
	SourceNone     PointSource = "none"
)

var transactionSources = map[TransactionType]PointSource{
	TypeRegisterReward: SourceNone,
	TypeReferralReward: SourceReferral,
	TypeReferralL1:     SourceReferral,
	TypeReferralL2:     SourceReferral,
	TypeTaskReward:     SourceTask,
	TypeTaskDaily:      SourceTask,
	TypeTaskWeekly:     SourceTask,
	TypeTaskOnce:       SourceTask,
	TypeQuizCorrect:    SourceQuiz,
	TypeTeamReward:     SourceTeam,
	TypePurchase:       SourcePurchase,
	TypeAdminGrant:     SourceNone,
	TypeExchangeToken:  SourceNone,
	TypeSpendItem:      SourceNone,
}

func init() {
	for _, t := range AllTransactionTypes {
		if _, ok := transactionSources[t]; !ok {
			panic(fmt.Sprintf("transaction type %s has no source routing entry", t))
		}
	}
	if len(transactionSources) != len(AllTransactionTypes) {
		panic("transactionSources contains an entry for an unknown transaction type")
	}
}

// SourceOf returns the subtotal a transaction type routes into. Unknown types
// are rejected rather than silently routed.
func SourceOf(t TransactionType) (PointSource, error) {
	source, ok := transactionSources[t]
	if !ok {
		return "", fmt.Errorf("unknown transaction type %s", t)
	}
	return source, nil
}

const (
	StatusApplied = "APPLIED"
)

// PointTransaction is one immutable entry in the append-only ledger. The
// account balance is reconstructable by summing Amount over a user's entries;
// BalanceAfter is the snapshot taken at commit time.
type PointTransaction struct {
	TransactionID     string          `json:"transaction_id"`
	UserID            string          `json:"user_id"`
	Type              TransactionType `json:"transaction_type"`
	Amount            int64           `json:"amount"`
	BalanceAfter      int64           `json:"balance_after"`
	RelatedUserID     string          `json:"related_user_id,omitempty"`
	RelatedTaskID     string          `json:"related_task_id,omitempty"`
	RelatedTeamID     string          `json:"related_team_id,omitempty"`
	RelatedQuestionID string          `json:"related_question_id,omitempty"`
	Description       string          `json:"description,omitempty"`
	Status            string          `json:"status"`
	IdempotencyKey    string          `json:"idempotency_key,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Validate checks the structural invariants of a ledger entry before it is
// applied: a zero amount is meaningless and the type must carry a routing
// entry.
func (t *PointTransaction) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("transaction is missing a user id")
	}
	if t.Amount == 0 {
		return fmt.Errorf("transaction amount cannot be zero")
	}
	if _, err := SourceOf(t.Type); err != nil {
		return err
	}
	return nil
}
