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
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/model"
)

func TestAddAndSpendFlow(t *testing.T) {
	service, ds := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	txn, err := service.AddPoints(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeTaskReward,
		Amount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), txn.Amount)
	assert.Equal(t, int64(100), txn.BalanceAfter)
	assert.Contains(t, txn.TransactionID, "txn_")

	_, err = service.Spend(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeSpendItem,
		Amount: 50,
	})
	require.NoError(t, err)

	account, err := service.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.AvailablePoints)
	assert.Equal(t, int64(100), account.TotalEarned)
	assert.Equal(t, int64(50), account.TotalSpent)
	assert.Equal(t, int64(100), account.PointsFromTask)

	_, err = service.Spend(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeSpendItem,
		Amount: 100,
	})
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientBalance))

	// A failed spend leaves no trace in the ledger.
	sum, err := ds.SumTransactionAmounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, account.AvailablePoints, sum)
}

func TestKeylessCreditsNeverMerge(t *testing.T) {
	service, ds := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	// Identical arguments without an idempotency key are distinct credits.
	first, err := service.AddPoints(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeTaskReward,
		Amount: 100,
	})
	require.NoError(t, err)
	second, err := service.AddPoints(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeTaskReward,
		Amount: 100,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)

	account, err := service.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), account.AvailablePoints)

	history, err := service.GetTransactionHistory(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	sum, err := ds.SumTransactionAmounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum)
}

func TestExchange(t *testing.T) {
	service, _ := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	_, err := service.AddPoints(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeAdminGrant,
		Amount: 200,
	})
	require.NoError(t, err)

	txn, err := service.Exchange(ctx, userID, 80, ExchangeToken, "USDT", "")
	require.NoError(t, err)
	assert.Equal(t, model.TypeExchangeToken, txn.Type)
	assert.Equal(t, int64(-80), txn.Amount)
	assert.Equal(t, int64(120), txn.BalanceAfter)

	_, err = service.Exchange(ctx, userID, 10, ExchangeKind("cash"), "USDT", "")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestAddPointsIdempotentReplay(t *testing.T) {
	service, ds := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	req := MutationRequest{
		UserID:         userID,
		Type:           model.TypeQuizCorrect,
		Amount:         25,
		IdempotencyKey: "quiz-answer-42",
	}
	first, err := service.AddPoints(ctx, req)
	require.NoError(t, err)

	second, err := service.AddPoints(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	account, err := service.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), account.AvailablePoints)

	history, err := ds.GetTransactionsByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestIdempotentReplaySurvivesCacheLoss(t *testing.T) {
	service, _ := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	req := MutationRequest{
		UserID:         userID,
		Type:           model.TypeAdminGrant,
		Amount:         10,
		IdempotencyKey: "grant-once",
	}
	first, err := service.AddPoints(ctx, req)
	require.NoError(t, err)

	// Simulate the cache entry expiring before the retry arrives. The
	// ledger's unique key still resolves the replay.
	require.NoError(t, service.idempotency.Delete(ctx, "grant-once"))

	second, err := service.AddPoints(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	account, err := service.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), account.AvailablePoints)
}

func TestMutationValidation(t *testing.T) {
	service, _ := newTestPointforge(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  MutationRequest
	}{
		{"missing user", MutationRequest{Type: model.TypeAdminGrant, Amount: 10}},
		{"zero amount", MutationRequest{UserID: "u1", Type: model.TypeAdminGrant, Amount: 0}},
		{"negative amount", MutationRequest{UserID: "u1", Type: model.TypeAdminGrant, Amount: -5}},
		{"unknown type", MutationRequest{UserID: "u1", Type: "MYSTERY", Amount: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.AddPoints(ctx, tt.req)
			assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
		})
	}
}

func TestConcurrentSpendsNeverOverdraw(t *testing.T) {
	service, ds := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	_, err := service.AddPoints(ctx, MutationRequest{
		UserID: userID,
		Type:   model.TypeAdminGrant,
		Amount: 50,
	})
	require.NoError(t, err)

	const spenders = 10
	var wg sync.WaitGroup
	results := make(chan error, spenders)
	for i := 0; i < spenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Spend(ctx, MutationRequest{
				UserID:      userID,
				Type:        model.TypeSpendItem,
				Amount:      10,
				Description: gofakeit.Sentence(3),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apierror.Is(err, apierror.ErrInsufficientBalance) || apierror.Is(err, apierror.ErrBusy))
	}
	assert.LessOrEqual(t, succeeded, 5)

	account, err := service.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, account.AvailablePoints, int64(0))

	sum, err := ds.SumTransactionAmounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, account.AvailablePoints, sum)
}

func TestTransactionHistoryPaging(t *testing.T) {
	service, _ := newTestPointforge(t)
	ctx := context.Background()
	userID := gofakeit.UUID()

	for i := 0; i < 5; i++ {
		_, err := service.AddPoints(ctx, MutationRequest{
			UserID:         userID,
			Type:           model.TypeQuizCorrect,
			Amount:         int64(i + 1),
			IdempotencyKey: gofakeit.UUID(),
		})
		require.NoError(t, err)
	}

	page, err := service.GetTransactionHistory(ctx, userID, 3, 0)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	rest, err := service.GetTransactionHistory(ctx, userID, 3, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
