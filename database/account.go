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
	"database/sql"
	"fmt"

	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/model"
)

const accountColumns = `account_id, user_id, available_points, frozen_points, total_earned, total_spent,
	points_from_referral, points_from_task, points_from_quiz, points_from_team, points_from_purchase,
	version, created_at`

func (d Datasource) CreateAccount(ctx context.Context, account *model.PointAccount) (*model.PointAccount, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO point_accounts (account_id, user_id, available_points, frozen_points, total_earned, total_spent,
			points_from_referral, points_from_task, points_from_quiz, points_from_team, points_from_purchase,
			version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, account.AccountID, account.UserID, account.AvailablePoints, account.FrozenPoints,
		account.TotalEarned, account.TotalSpent,
		account.PointsFromReferral, account.PointsFromTask, account.PointsFromQuiz,
		account.PointsFromTeam, account.PointsFromPurchase,
		account.Version, account.CreatedAt)
	if err != nil {
		return nil, mapPQError(err, "point account")
	}
	return account, nil
}

func (d Datasource) GetAccountByUserID(ctx context.Context, userID string) (*model.PointAccount, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM point_accounts WHERE user_id = $1
	`, accountColumns), userID)
	return scanAccount(row)
}

// GetOrCreateAccount returns the account for userID, creating an empty one
// on first sight. A concurrent first-create loses the insert race cleanly
// and re-reads.
func (d Datasource) GetOrCreateAccount(ctx context.Context, userID string) (*model.PointAccount, error) {
	account, err := d.GetAccountByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}
	created, err := d.CreateAccount(ctx, model.NewPointAccount(userID))
	if err == nil {
		return created, nil
	}
	if apierror.Is(err, apierror.ErrConflict) {
		return d.GetAccountByUserID(ctx, userID)
	}
	return nil, err
}

// ApplyMutation persists an already-applied account mutation and its ledger
// entry in one database transaction. The account row is updated with an
// optimistic version check; a stale version means a concurrent writer slipped
// past the operation lock and the whole mutation is rolled back.
func (d Datasource) ApplyMutation(ctx context.Context, account *model.PointAccount, txn *model.PointTransaction) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "starting mutation transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE point_accounts
		SET available_points = $1, frozen_points = $2, total_earned = $3, total_spent = $4,
			points_from_referral = $5, points_from_task = $6, points_from_quiz = $7,
			points_from_team = $8, points_from_purchase = $9, version = version + 1
		WHERE account_id = $10 AND version = $11
	`, account.AvailablePoints, account.FrozenPoints, account.TotalEarned, account.TotalSpent,
		account.PointsFromReferral, account.PointsFromTask, account.PointsFromQuiz,
		account.PointsFromTeam, account.PointsFromPurchase,
		account.AccountID, account.Version)
	if err != nil {
		return mapPQError(err, "point account")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "reading affected rows", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("account %s changed concurrently, retry the operation", account.AccountID), nil)
	}

	idempotencyKey := sql.NullString{String: txn.IdempotencyKey, Valid: txn.IdempotencyKey != ""}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO point_transactions (transaction_id, user_id, transaction_type, amount, balance_after,
			related_user_id, related_task_id, related_team_id, related_question_id,
			description, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, txn.TransactionID, txn.UserID, txn.Type, txn.Amount, txn.BalanceAfter,
		nullable(txn.RelatedUserID), nullable(txn.RelatedTaskID), nullable(txn.RelatedTeamID), nullable(txn.RelatedQuestionID),
		txn.Description, txn.Status, idempotencyKey, txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "point_transactions_idempotency_key_key") {
			return apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("operation %s already recorded", txn.IdempotencyKey), err)
		}
		return mapPQError(err, "point transaction")
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "committing mutation", err)
	}
	account.Version++
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*model.PointAccount, error) {
	account := &model.PointAccount{}
	err := row.Scan(&account.AccountID, &account.UserID, &account.AvailablePoints, &account.FrozenPoints,
		&account.TotalEarned, &account.TotalSpent,
		&account.PointsFromReferral, &account.PointsFromTask, &account.PointsFromQuiz,
		&account.PointsFromTeam, &account.PointsFromPurchase,
		&account.Version, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "point account not found", err)
	}
	if err != nil {
		return nil, mapPQError(err, "point account")
	}
	return account, nil
}
