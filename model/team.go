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

import "time"

// TeamMemberStatus marks whether a member participates in pool distributions.
type TeamMemberStatus string

const (
	MemberActive TeamMemberStatus = "ACTIVE"
	MemberLeft   TeamMemberStatus = "LEFT"
)

// Team owns an accumulated reward pool. The pool is zeroed and stamped on
// every distribution.
type Team struct {
	TeamID             string     `json:"team_id"`
	Name               string     `json:"name"`
	RewardPool         int64      `json:"reward_pool"`
	LastDistributionAt *time.Time `json:"last_distribution_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TeamMember carries the contribution weight read (not owned) by the pool
// distributor.
type TeamMember struct {
	MemberID           string           `json:"member_id"`
	TeamID             string           `json:"team_id"`
	UserID             string           `json:"user_id"`
	ContributionPoints int64            `json:"contribution_points"`
	Status             TeamMemberStatus `json:"status"`
	JoinedAt           time.Time        `json:"joined_at"`
}

// Allocation is one member's slice of a distributed pool, returned for audit
// and testing. Ratio is the member's exact proportional entitlement of the
// pool, before integer rounding.
type Allocation struct {
	UserID       string  `json:"user_id"`
	Share        int64   `json:"share"`
	Contribution int64   `json:"contribution"`
	Ratio        float64 `json:"ratio"`
}

// ReferralRelation links a referee to their referrer. A referee has at most
// one relation; chains are walked iteratively for cycle checks.
type ReferralRelation struct {
	RelationID        string    `json:"relation_id"`
	RefereeID         string    `json:"referee_id"`
	ReferrerID        string    `json:"referrer_id"`
	Level             int       `json:"level"`
	TotalRewardsGiven int64     `json:"total_rewards_given"`
	CreatedAt         time.Time `json:"created_at"`
}
