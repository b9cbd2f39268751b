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
	"time"
)

// TaskCadence controls how a task recurs and how a fresh assignment's expiry
// is derived.
type TaskCadence string

const (
	CadenceDaily  TaskCadence = "DAILY"
	CadenceWeekly TaskCadence = "WEEKLY"
	CadenceOnce   TaskCadence = "ONCE"
)

// ProgressStatus is the task progress state machine. REWARDED and EXPIRED are
// terminal; COMPLETED cycles back to AVAILABLE for repeatable tasks with
// remaining quota.
type ProgressStatus string

const (
	ProgressAvailable  ProgressStatus = "AVAILABLE"
	ProgressInProgress ProgressStatus = "IN_PROGRESS"
	ProgressCompleted  ProgressStatus = "COMPLETED"
	ProgressRewarded   ProgressStatus = "REWARDED"
	ProgressExpired    ProgressStatus = "EXPIRED"
)

// Task is the task configuration. Its CRUD surface is owned externally; the
// progress engine only reads it.
type Task struct {
	TaskID           string      `json:"task_id"`
	TaskKey          string      `json:"task_key"`
	Title            string      `json:"title"`
	Cadence          TaskCadence `json:"cadence"`
	TargetValue      int64       `json:"target_value"`
	RewardPoints     int64       `json:"reward_points"`
	BonusPoints      int64       `json:"bonus_points"`
	MinLevelRequired int         `json:"min_level_required"`
	MaxCompletions   int         `json:"max_completions"` // 0 means unbounded
	IsActive         bool        `json:"is_active"`
	StartTime        *time.Time  `json:"start_time,omitempty"`
	EndTime          *time.Time  `json:"end_time,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// ActiveWindowContains reports whether the task may be interacted with at t.
func (t *Task) ActiveWindowContains(at time.Time) bool {
	if t.StartTime != nil && at.Before(*t.StartTime) {
		return false
	}
	if t.EndTime != nil && at.After(*t.EndTime) {
		return false
	}
	return true
}

// Repeatable reports whether another completion cycle is allowed after count
// completions.
func (t *Task) Repeatable(count int) bool {
	return t.MaxCompletions == 0 || count < t.MaxCompletions
}

// TaskProgress is one user's instance of a task. TargetValue and the reward
// amounts are snapshotted from the config at assignment time so later config
// edits never retroactively change in-flight progress.
type TaskProgress struct {
	ProgressID      string         `json:"progress_id"`
	UserID          string         `json:"user_id"`
	TaskID          string         `json:"task_id"`
	CurrentValue    int64          `json:"current_value"`
	TargetValue     int64          `json:"target_value"`
	RewardPoints    int64          `json:"reward_points"`
	BonusPoints     int64          `json:"bonus_points"`
	Status          ProgressStatus `json:"status"`
	CompletionCount int            `json:"completion_count"`
	IsClaimed       bool           `json:"is_claimed"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	Version         int64          `json:"version"`
}

// Expired reports whether the progress window has passed at t.
func (p *TaskProgress) Expired(at time.Time) bool {
	return p.ExpiresAt != nil && at.After(*p.ExpiresAt)
}
