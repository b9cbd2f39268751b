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
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pointforge/pointforge/config"
	"github.com/pointforge/pointforge/internal/apierror"
	redlock "github.com/pointforge/pointforge/internal/lock"
	"github.com/pointforge/pointforge/model"
)

var tracer = otel.Tracer("pointforge.points")

const applyMutationRetries = 3

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// MutationRequest describes a single point mutation. Amount is always
// positive; the direction comes from the operation (AddPoints credits,
// Spend debits).
type MutationRequest struct {
	UserID            string
	Type              model.TransactionType
	Amount            int64
	Description       string
	RelatedUserID     string
	RelatedTaskID     string
	RelatedTeamID     string
	RelatedQuestionID string
	IdempotencyKey    string
}

func (r MutationRequest) validate() error {
	if r.UserID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "user id is required", nil)
	}
	if r.Amount <= 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "amount must be positive", nil)
	}
	if _, err := model.SourceOf(r.Type); err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}
	return nil
}

// AddPoints credits points to a user's account and appends a ledger entry.
// Replays with the same idempotency key return the original entry without
// mutating again.
func (p *Pointforge) AddPoints(ctx context.Context, req MutationRequest) (*model.PointTransaction, error) {
	ctx, span := tracer.Start(ctx, "Adding points")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, logAndRecordError(span, "invalid add points request: ", err)
	}
	return p.mutate(ctx, span, req, req.Amount)
}

// Spend debits points from a user's account. The balance is checked under
// the operation lock so two concurrent spends cannot both pass preflight.
func (p *Pointforge) Spend(ctx context.Context, req MutationRequest) (*model.PointTransaction, error) {
	ctx, span := tracer.Start(ctx, "Spending points")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, logAndRecordError(span, "invalid spend request: ", err)
	}
	return p.mutate(ctx, span, req, -req.Amount)
}

// ExchangeKind names what a user is redeeming points for.
type ExchangeKind string

const (
	ExchangeToken     ExchangeKind = "token"
	ExchangeNFT       ExchangeKind = "nft"
	ExchangePrivilege ExchangeKind = "privilege"
)

var exchangeTypes = map[ExchangeKind]model.TransactionType{
	ExchangeToken:     model.TypeExchangeToken,
	ExchangeNFT:       model.TypeSpendItem,
	ExchangePrivilege: model.TypeSpendItem,
}

// Exchange redeems points for an external item. The kind resolves the ledger
// transaction type; target identifies the item on the other side.
func (p *Pointforge) Exchange(ctx context.Context, userID string, amount int64, kind ExchangeKind, target, idempotencyKey string) (*model.PointTransaction, error) {
	txnType, ok := exchangeTypes[kind]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("unknown exchange kind %s", kind), nil)
	}
	return p.Spend(ctx, MutationRequest{
		UserID:         userID,
		Type:           txnType,
		Amount:         amount,
		Description:    fmt.Sprintf("exchange %s: %s", kind, target),
		IdempotencyKey: idempotencyKey,
	})
}

// mutate is the single write path for point balances. The sequence is:
// idempotency fast path, per-user lock, idempotency re-check, apply, persist,
// record, post-commit fanout. signedAmount already carries the direction.
func (p *Pointforge) mutate(ctx context.Context, span trace.Span, req MutationRequest, signedAmount int64) (*model.PointTransaction, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	// Requests without a key are distinct by definition and never dedupe.
	key := req.IdempotencyKey

	// Fast path before taking the lock.
	if key != "" {
		if existing, err := p.replayed(ctx, key); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	locker := redlock.NewLocker(p.redis, fmt.Sprintf("lock:points:mutate-points:%s", req.UserID), model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, cfg.Points.LockLease(), cfg.Points.LockWaitTimeout()); err != nil {
		if errors.Is(err, redlock.ErrWaitTimeout) {
			return nil, apierror.NewAPIError(apierror.ErrBusy, fmt.Sprintf("user %s is busy, retry shortly", req.UserID), err)
		}
		return nil, logAndRecordError(span, "acquiring mutation lock: ", err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Error("unlock error: ", err)
		}
	}()

	// A concurrent holder may have committed this key while we waited.
	if key != "" {
		if existing, err := p.replayed(ctx, key); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	txn, err := p.applyWithRetry(ctx, span, req, signedAmount, key)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := p.idempotency.Store(ctx, key, txn); err != nil {
			logrus.Error("storing idempotency record: ", err)
		}
	}
	p.postCommit(ctx, txn)
	return txn, nil
}

// replayed checks the cache and then the ledger for a committed entry under
// the idempotency key.
func (p *Pointforge) replayed(ctx context.Context, key string) (*model.PointTransaction, error) {
	if cached, err := p.idempotency.Check(ctx, key); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}
	existing, err := p.datasource.GetTransactionByIdempotencyKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if apierror.Is(err, apierror.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// applyWithRetry applies the mutation with a bounded retry on optimistic
// version conflicts. Conflicts should be rare under the lock but can still
// happen if an unrelated writer touches the account row.
func (p *Pointforge) applyWithRetry(ctx context.Context, span trace.Span, req MutationRequest, signedAmount int64, key string) (*model.PointTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < applyMutationRetries; attempt++ {
		account, err := p.datasource.GetOrCreateAccount(ctx, req.UserID)
		if err != nil {
			return nil, logAndRecordError(span, "loading point account: ", err)
		}

		if signedAmount < 0 && account.AvailablePoints+signedAmount < 0 {
			return nil, apierror.NewAPIError(apierror.ErrInsufficientBalance,
				fmt.Sprintf("insufficient balance: have %d, need %d", account.AvailablePoints, -signedAmount), nil)
		}

		txn := &model.PointTransaction{
			TransactionID:     model.GenerateUUIDWithSuffix("txn"),
			UserID:            req.UserID,
			Type:              req.Type,
			Amount:            signedAmount,
			RelatedUserID:     req.RelatedUserID,
			RelatedTaskID:     req.RelatedTaskID,
			RelatedTeamID:     req.RelatedTeamID,
			RelatedQuestionID: req.RelatedQuestionID,
			Description:       req.Description,
			IdempotencyKey:    key,
			CreatedAt:         time.Now(),
		}
		if err := account.Apply(txn); err != nil {
			return nil, logAndRecordError(span, "applying mutation: ", err)
		}

		err = p.datasource.ApplyMutation(ctx, account, txn)
		if err == nil {
			return txn, nil
		}
		if !apierror.Is(err, apierror.ErrConflict) {
			return nil, logAndRecordError(span, "persisting mutation: ", err)
		}
		lastErr = err
	}
	return nil, logAndRecordError(span, "mutation retries exhausted: ", lastErr)
}

// postCommit runs the fanout that must not fail the mutation: cache
// invalidation, webhook notification and leaderboard refresh.
func (p *Pointforge) postCommit(ctx context.Context, txn *model.PointTransaction) {
	if err := p.cache.Delete(ctx, accountCacheKey(txn.UserID)); err != nil {
		logrus.Error("invalidating account cache: ", err)
	}
	if err := SendWebhook(NewWebhook{Event: EventPointsApplied, Payload: txn}); err != nil {
		logrus.Error("sending webhook: ", err)
	}
	if err := p.queue.queueLeaderboardRefresh(txn.UserID); err != nil {
		logrus.Error("enqueueing leaderboard refresh: ", err)
	}
}

func accountCacheKey(userID string) string {
	return "points:account:" + userID
}
