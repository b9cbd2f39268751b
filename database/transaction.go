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

const transactionColumns = `transaction_id, user_id, transaction_type, amount, balance_after,
	related_user_id, related_task_id, related_team_id, related_question_id,
	description, status, idempotency_key, created_at`

func (d Datasource) GetTransaction(ctx context.Context, transactionID string) (*model.PointTransaction, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM point_transactions WHERE transaction_id = $1
	`, transactionColumns), transactionID)
	return scanTransaction(row)
}

// GetTransactionByIdempotencyKey is the durable half of the replay guard.
// A cache miss on a retried operation falls through here before mutating.
func (d Datasource) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*model.PointTransaction, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM point_transactions WHERE idempotency_key = $1
	`, transactionColumns), key)
	return scanTransaction(row)
}

func (d Datasource) GetTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]*model.PointTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, transactionColumns), userID, limit, offset)
	if err != nil {
		return nil, mapPQError(err, "point transactions")
	}
	defer rows.Close()

	var transactions []*model.PointTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "point transactions")
	}
	return transactions, nil
}

// SumTransactionAmounts totals the ledger for one user. Used by
// reconciliation to check the ledger against the account projection.
func (d Datasource) SumTransactionAmounts(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		return 0, mapPQError(err, "point transactions")
	}
	return sum, nil
}

func scanTransaction(row rowScanner) (*model.PointTransaction, error) {
	txn := &model.PointTransaction{}
	var relatedUser, relatedTask, relatedTeam, relatedQuestion, idempotencyKey sql.NullString
	err := row.Scan(&txn.TransactionID, &txn.UserID, &txn.Type, &txn.Amount, &txn.BalanceAfter,
		&relatedUser, &relatedTask, &relatedTeam, &relatedQuestion,
		&txn.Description, &txn.Status, &idempotencyKey, &txn.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "point transaction not found", err)
	}
	if err != nil {
		return nil, mapPQError(err, "point transaction")
	}
	txn.RelatedUserID = relatedUser.String
	txn.RelatedTaskID = relatedTask.String
	txn.RelatedTeamID = relatedTeam.String
	txn.RelatedQuestionID = relatedQuestion.String
	txn.IdempotencyKey = idempotencyKey.String
	return txn, nil
}
