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
	"time"

	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/model"
)

const teamColumns = `team_id, name, reward_pool, last_distribution_at, created_at`

func (d Datasource) CreateTeam(ctx context.Context, t *model.Team) (*model.Team, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO teams (team_id, name, reward_pool, last_distribution_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.TeamID, t.Name, t.RewardPool, t.LastDistributionAt, t.CreatedAt)
	if err != nil {
		return nil, mapPQError(err, "team")
	}
	return t, nil
}

func (d Datasource) GetTeam(ctx context.Context, teamID string) (*model.Team, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM teams WHERE team_id = $1
	`, teamColumns), teamID)
	return scanTeam(row)
}

// AddToRewardPool atomically increments the pool and returns the updated team.
func (d Datasource) AddToRewardPool(ctx context.Context, teamID string, amount int64) (*model.Team, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE teams SET reward_pool = reward_pool + $1
		WHERE team_id = $2
		RETURNING %s
	`, teamColumns), amount, teamID)
	return scanTeam(row)
}

// ResetRewardPool zeroes the pool after a distribution and stamps when it ran.
func (d Datasource) ResetRewardPool(ctx context.Context, teamID string, distributedAt time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE teams SET reward_pool = 0, last_distribution_at = $1 WHERE team_id = $2
	`, distributedAt, teamID)
	if err != nil {
		return mapPQError(err, "team")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "reading affected rows", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("team %s not found", teamID), nil)
	}
	return nil
}

func (d Datasource) AddTeamMember(ctx context.Context, member *model.TeamMember) (*model.TeamMember, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO team_members (member_id, team_id, user_id, contribution_points, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, member.MemberID, member.TeamID, member.UserID, member.ContributionPoints, member.Status, member.JoinedAt)
	if err != nil {
		return nil, mapPQError(err, "team member")
	}
	return member, nil
}

// GetActiveMembers returns active members ordered by user id so that
// distribution remainder assignment is deterministic.
func (d Datasource) GetActiveMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT member_id, team_id, user_id, contribution_points, status, joined_at
		FROM team_members
		WHERE team_id = $1 AND status = 'ACTIVE'
		ORDER BY user_id
	`, teamID)
	if err != nil {
		return nil, mapPQError(err, "team members")
	}
	defer rows.Close()

	var members []*model.TeamMember
	for rows.Next() {
		m := &model.TeamMember{}
		if err := rows.Scan(&m.MemberID, &m.TeamID, &m.UserID, &m.ContributionPoints, &m.Status, &m.JoinedAt); err != nil {
			return nil, mapPQError(err, "team member")
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "team members")
	}
	return members, nil
}

func scanTeam(row rowScanner) (*model.Team, error) {
	t := &model.Team{}
	err := row.Scan(&t.TeamID, &t.Name, &t.RewardPool, &t.LastDistributionAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "team not found", err)
	}
	if err != nil {
		return nil, mapPQError(err, "team")
	}
	return t, nil
}
