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

const referralColumns = `relation_id, referee_id, referrer_id, level, total_rewards_given, created_at`

func (d Datasource) CreateReferralRelation(ctx context.Context, relation *model.ReferralRelation) (*model.ReferralRelation, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO referral_relations (relation_id, referee_id, referrer_id, level, total_rewards_given, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, relation.RelationID, relation.RefereeID, relation.ReferrerID, relation.Level,
		relation.TotalRewardsGiven, relation.CreatedAt)
	if err != nil {
		return nil, mapPQError(err, "referral relation")
	}
	return relation, nil
}

func (d Datasource) GetReferralByReferee(ctx context.Context, refereeID string) (*model.ReferralRelation, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM referral_relations WHERE referee_id = $1
	`, referralColumns), refereeID)
	return scanReferral(row)
}

// GetReferralChain walks referee -> referrer up to maxDepth hops. The walk
// stops early on a missing link. Cycle detection happens in the service
// layer before a relation is ever written, so a bounded walk is enough here.
func (d Datasource) GetReferralChain(ctx context.Context, refereeID string, maxDepth int) ([]*model.ReferralRelation, error) {
	var chain []*model.ReferralRelation
	current := refereeID
	for depth := 0; depth < maxDepth; depth++ {
		relation, err := d.GetReferralByReferee(ctx, current)
		if apierror.Is(err, apierror.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, relation)
		current = relation.ReferrerID
	}
	return chain, nil
}

func (d Datasource) IncrementReferralRewards(ctx context.Context, relationID string, amount int64) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE referral_relations SET total_rewards_given = total_rewards_given + $1 WHERE relation_id = $2
	`, amount, relationID)
	if err != nil {
		return mapPQError(err, "referral relation")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "reading affected rows", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("referral relation %s not found", relationID), nil)
	}
	return nil
}

func scanReferral(row rowScanner) (*model.ReferralRelation, error) {
	relation := &model.ReferralRelation{}
	err := row.Scan(&relation.RelationID, &relation.RefereeID, &relation.ReferrerID,
		&relation.Level, &relation.TotalRewardsGiven, &relation.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "referral relation not found", err)
	}
	if err != nil {
		return nil, mapPQError(err, "referral relation")
	}
	return relation, nil
}
