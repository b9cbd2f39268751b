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
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTransaction(userID string, typ TransactionType, amount int64) *PointTransaction {
	return &PointTransaction{
		TransactionID: GenerateUUIDWithSuffix("ptx"),
		UserID:        userID,
		Type:          typ,
		Amount:        amount,
	}
}

func TestApply_CreditRoutesSubtotal(t *testing.T) {
	account := NewPointAccount("usr_1")
	txn := newTransaction("usr_1", TypeTaskReward, 100)

	err := account.Apply(txn)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), account.AvailablePoints)
	assert.Equal(t, int64(100), account.TotalEarned)
	assert.Equal(t, int64(100), account.PointsFromTask)
	assert.Equal(t, int64(0), account.PointsFromReferral)
	assert.Equal(t, int64(100), txn.BalanceAfter)
	assert.Equal(t, StatusApplied, txn.Status)
}

func TestApply_DebitUpdatesTotalSpent(t *testing.T) {
	account := NewPointAccount("usr_1")
	assert.NoError(t, account.Apply(newTransaction("usr_1", TypeTaskReward, 100)))

	spend := newTransaction("usr_1", TypeExchangeToken, -40)
	err := account.Apply(spend)
	assert.NoError(t, err)
	assert.Equal(t, int64(60), account.AvailablePoints)
	assert.Equal(t, int64(40), account.TotalSpent)
	assert.Equal(t, int64(100), account.TotalEarned)
	assert.Equal(t, int64(60), spend.BalanceAfter)
}

func TestApply_RejectsOverdraw(t *testing.T) {
	account := NewPointAccount("usr_1")
	assert.NoError(t, account.Apply(newTransaction("usr_1", TypeTaskReward, 50)))

	err := account.Apply(newTransaction("usr_1", TypeExchangeToken, -100))
	assert.Error(t, err)
	assert.Equal(t, int64(50), account.AvailablePoints, "balance must be unchanged on rejection")
	assert.Equal(t, int64(0), account.TotalSpent)
}

func TestApply_RejectsForeignUser(t *testing.T) {
	account := NewPointAccount("usr_1")
	err := account.Apply(newTransaction("usr_2", TypeTaskReward, 10))
	assert.Error(t, err)
}

func TestApply_ReplaySumMatchesBalance(t *testing.T) {
	account := NewPointAccount("usr_1")
	amounts := []int64{100, 250, -50, 75, -125, 10}
	types := []TransactionType{
		TypeTaskReward, TypePurchase, TypeSpendItem,
		TypeQuizCorrect, TypeExchangeToken, TypeReferralL1,
	}

	var sum int64
	for i, amount := range amounts {
		assert.NoError(t, account.Apply(newTransaction("usr_1", types[i], amount)))
		sum += amount
	}
	assert.Equal(t, sum, account.AvailablePoints)
	assert.Equal(t, account.TotalEarned-account.TotalSpent, account.AvailablePoints)
}
