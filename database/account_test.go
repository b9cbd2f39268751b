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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/model"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Datasource{Conn: db}, mock
}

func accountRows(account *model.PointAccount) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"account_id", "user_id", "available_points", "frozen_points", "total_earned", "total_spent",
		"points_from_referral", "points_from_task", "points_from_quiz", "points_from_team", "points_from_purchase",
		"version", "created_at",
	}).AddRow(account.AccountID, account.UserID, account.AvailablePoints, account.FrozenPoints,
		account.TotalEarned, account.TotalSpent,
		account.PointsFromReferral, account.PointsFromTask, account.PointsFromQuiz,
		account.PointsFromTeam, account.PointsFromPurchase,
		account.Version, account.CreatedAt)
}

func TestGetAccountByUserID(t *testing.T) {
	ds, mock := newTestDatasource(t)

	want := model.NewPointAccount("user_1")
	want.AvailablePoints = 250
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("user_1").
		WillReturnRows(accountRows(want))

	got, err := ds.GetAccountByUserID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, want.AccountID, got.AccountID)
	assert.Equal(t, int64(250), got.AvailablePoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountByUserIDNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

	_, err := ds.GetAccountByUserID(context.Background(), "missing")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestGetOrCreateAccountLosesInsertRace(t *testing.T) {
	ds, mock := newTestDatasource(t)

	existing := model.NewPointAccount("user_2")

	// First read misses, insert collides with a concurrent creator,
	// the re-read wins.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("user_2").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO point_accounts")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("user_2").
		WillReturnRows(accountRows(existing))

	got, err := ds.GetOrCreateAccount(context.Background(), "user_2")
	require.NoError(t, err)
	assert.Equal(t, existing.AccountID, got.AccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation(t *testing.T) {
	ds, mock := newTestDatasource(t)

	account := model.NewPointAccount("user_3")
	account.AvailablePoints = 100
	account.TotalEarned = 100
	account.PointsFromTask = 100
	account.Version = 3

	txn := &model.PointTransaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		UserID:        "user_3",
		Type:          model.TypeTaskReward,
		Amount:        100,
		BalanceAfter:  100,
		Status:        model.StatusApplied,
		CreatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE point_accounts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO point_transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := ds.ApplyMutation(context.Background(), account, txn)
	require.NoError(t, err)
	assert.Equal(t, int64(4), account.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutationStaleVersion(t *testing.T) {
	ds, mock := newTestDatasource(t)

	account := model.NewPointAccount("user_4")
	txn := &model.PointTransaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		UserID:        "user_4",
		Type:          model.TypeAdminGrant,
		Amount:        10,
		Status:        model.StatusApplied,
		CreatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE point_accounts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := ds.ApplyMutation(context.Background(), account, txn)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutationDuplicateIdempotencyKey(t *testing.T) {
	ds, mock := newTestDatasource(t)

	account := model.NewPointAccount("user_5")
	txn := &model.PointTransaction{
		TransactionID:  model.GenerateUUIDWithSuffix("txn"),
		UserID:         "user_5",
		Type:           model.TypeQuizCorrect,
		Amount:         5,
		Status:         model.StatusApplied,
		IdempotencyKey: "abc123",
		CreatedAt:      time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE point_accounts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO point_transactions")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "point_transactions_idempotency_key_key"})
	mock.ExpectRollback()

	err := ds.ApplyMutation(context.Background(), account, txn)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}
