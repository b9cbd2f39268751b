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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/internal/idempotency"
	"github.com/pointforge/pointforge/model"
)

const (
	// maxReferralDepth bounds chain walks. Cycle checks walk further than
	// reward fanout so a corrupt chain is still detected.
	maxReferralDepth = 64

	referralLevelOnePercent = 10
	referralLevelTwoPercent = 5
)

// LinkReferral records that referee was invited by referrer. A user can be
// linked once, cannot refer themselves, and a link that would close a cycle
// through the existing chain is rejected.
func (p *Pointforge) LinkReferral(ctx context.Context, refereeID, referrerID string) (*model.ReferralRelation, error) {
	ctx, span := tracer.Start(ctx, "Linking referral")
	defer span.End()

	if refereeID == "" || referrerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "referee and referrer ids are required", nil)
	}
	if refereeID == referrerID {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "users cannot refer themselves", nil)
	}

	if _, err := p.datasource.GetReferralByReferee(ctx, refereeID); err == nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("user %s is already linked to a referrer", refereeID), nil)
	} else if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	// Walk upward from the referrer. Reaching the referee means the new
	// edge would close a loop.
	visited := map[string]bool{refereeID: true}
	current := referrerID
	for depth := 0; depth < maxReferralDepth; depth++ {
		if visited[current] {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest,
				fmt.Sprintf("linking %s to %s would create a referral cycle", refereeID, referrerID), nil)
		}
		visited[current] = true
		relation, err := p.datasource.GetReferralByReferee(ctx, current)
		if apierror.Is(err, apierror.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		current = relation.ReferrerID
	}

	relation, err := p.datasource.CreateReferralRelation(ctx, &model.ReferralRelation{
		RelationID: model.GenerateUUIDWithSuffix("ref"),
		RefereeID:  refereeID,
		ReferrerID: referrerID,
		Level:      1,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return nil, logAndRecordError(span, "creating referral relation: ", err)
	}
	return relation, nil
}

// AwardReferralPoints fans a percentage of a referee's earning up the chain:
// the direct referrer gets 10 percent, the referrer's referrer 5 percent.
// Shares round down and a share of zero is skipped. eventID makes the fanout
// replay-safe for a given earning event.
func (p *Pointforge) AwardReferralPoints(ctx context.Context, refereeID string, baseAmount int64, eventID string) ([]*model.PointTransaction, error) {
	ctx, span := tracer.Start(ctx, "Awarding referral points")
	defer span.End()

	if baseAmount <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "base amount must be positive", nil)
	}
	if eventID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "event id is required", nil)
	}

	chain, err := p.datasource.GetReferralChain(ctx, refereeID, 2)
	if err != nil {
		return nil, err
	}

	levels := []struct {
		percent int64
		txnType model.TransactionType
	}{
		{referralLevelOnePercent, model.TypeReferralL1},
		{referralLevelTwoPercent, model.TypeReferralL2},
	}

	var awarded []*model.PointTransaction
	for i, relation := range chain {
		if i >= len(levels) {
			break
		}
		share := decimal.NewFromInt(baseAmount).
			Mul(decimal.NewFromInt(levels[i].percent)).
			Div(decimal.NewFromInt(100)).
			Floor().IntPart()
		if share == 0 {
			continue
		}
		txn, err := p.AddPoints(ctx, MutationRequest{
			UserID:         relation.ReferrerID,
			Type:           levels[i].txnType,
			Amount:         share,
			Description:    fmt.Sprintf("referral share from %s", refereeID),
			RelatedUserID:  refereeID,
			IdempotencyKey: idempotency.DeriveKey("referral", eventID, relation.ReferrerID),
		})
		if err != nil {
			return awarded, logAndRecordError(span, "crediting referral share: ", err)
		}
		if err := p.datasource.IncrementReferralRewards(ctx, relation.RelationID, share); err != nil {
			logrus.Error("recording referral reward total: ", err)
		}
		awarded = append(awarded, txn)
	}
	return awarded, nil
}
