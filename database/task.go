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

const taskColumns = `task_id, task_key, title, cadence, target_value, reward_points, bonus_points,
	min_level_required, max_completions, is_active, start_time, end_time, created_at`

const progressColumns = `progress_id, user_id, task_id, current_value, target_value, reward_points, bonus_points,
	status, completion_count, is_claimed, expires_at, completed_at, claimed_at, version, created_at`

func (d Datasource) CreateTask(ctx context.Context, t *model.Task) (*model.Task, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO tasks (task_id, task_key, title, cadence, target_value, reward_points, bonus_points,
			min_level_required, max_completions, is_active, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.TaskID, t.TaskKey, t.Title, t.Cadence, t.TargetValue, t.RewardPoints, t.BonusPoints,
		t.MinLevelRequired, t.MaxCompletions, t.IsActive, t.StartTime, t.EndTime, t.CreatedAt)
	if err != nil {
		return nil, mapPQError(err, "task")
	}
	return t, nil
}

func (d Datasource) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM tasks WHERE task_id = $1
	`, taskColumns), taskID)
	return scanTask(row)
}

func (d Datasource) GetTaskByKey(ctx context.Context, taskKey string) (*model.Task, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM tasks WHERE task_key = $1
	`, taskColumns), taskKey)
	return scanTask(row)
}

func (d Datasource) GetActiveTasks(ctx context.Context) ([]*model.Task, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM tasks WHERE is_active = TRUE ORDER BY created_at
	`, taskColumns))
	if err != nil {
		return nil, mapPQError(err, "tasks")
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "tasks")
	}
	return tasks, nil
}

func (d Datasource) CreateTaskProgress(ctx context.Context, progress *model.TaskProgress) (*model.TaskProgress, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO task_progress (progress_id, user_id, task_id, current_value, target_value,
			reward_points, bonus_points, status, completion_count, is_claimed,
			expires_at, completed_at, claimed_at, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, progress.ProgressID, progress.UserID, progress.TaskID, progress.CurrentValue, progress.TargetValue,
		progress.RewardPoints, progress.BonusPoints, progress.Status, progress.CompletionCount, progress.IsClaimed,
		progress.ExpiresAt, progress.CompletedAt, progress.ClaimedAt, progress.Version, progress.CreatedAt)
	if err != nil {
		return nil, mapPQError(err, "task progress")
	}
	return progress, nil
}

func (d Datasource) GetTaskProgress(ctx context.Context, progressID string) (*model.TaskProgress, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM task_progress WHERE progress_id = $1
	`, progressColumns), progressID)
	return scanProgress(row)
}

// GetOpenTaskProgress returns the newest progress row for a user and task
// that has not reached a terminal state.
func (d Datasource) GetOpenTaskProgress(ctx context.Context, userID, taskID string) (*model.TaskProgress, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM task_progress
		WHERE user_id = $1 AND task_id = $2 AND status NOT IN ('REWARDED', 'EXPIRED')
		ORDER BY created_at DESC
		LIMIT 1
	`, progressColumns), userID, taskID)
	return scanProgress(row)
}

// GetLatestTaskProgress returns the newest progress row for a user and task
// regardless of state, so callers can tell a finished task from an
// unattempted one.
func (d Datasource) GetLatestTaskProgress(ctx context.Context, userID, taskID string) (*model.TaskProgress, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM task_progress
		WHERE user_id = $1 AND task_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, progressColumns), userID, taskID)
	return scanProgress(row)
}

func (d Datasource) UpdateTaskProgress(ctx context.Context, progress *model.TaskProgress) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE task_progress
		SET current_value = $1, status = $2, completion_count = $3, is_claimed = $4,
			expires_at = $5, completed_at = $6, claimed_at = $7, version = version + 1
		WHERE progress_id = $8 AND version = $9
	`, progress.CurrentValue, progress.Status, progress.CompletionCount, progress.IsClaimed,
		progress.ExpiresAt, progress.CompletedAt, progress.ClaimedAt,
		progress.ProgressID, progress.Version)
	if err != nil {
		return mapPQError(err, "task progress")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "reading affected rows", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("task progress %s changed concurrently, retry the operation", progress.ProgressID), nil)
	}
	progress.Version++
	return nil
}

func scanTask(row rowScanner) (*model.Task, error) {
	t := &model.Task{}
	err := row.Scan(&t.TaskID, &t.TaskKey, &t.Title, &t.Cadence, &t.TargetValue, &t.RewardPoints, &t.BonusPoints,
		&t.MinLevelRequired, &t.MaxCompletions, &t.IsActive, &t.StartTime, &t.EndTime, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "task not found", err)
	}
	if err != nil {
		return nil, mapPQError(err, "task")
	}
	return t, nil
}

func scanProgress(row rowScanner) (*model.TaskProgress, error) {
	p := &model.TaskProgress{}
	err := row.Scan(&p.ProgressID, &p.UserID, &p.TaskID, &p.CurrentValue, &p.TargetValue,
		&p.RewardPoints, &p.BonusPoints, &p.Status, &p.CompletionCount, &p.IsClaimed,
		&p.ExpiresAt, &p.CompletedAt, &p.ClaimedAt, &p.Version, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "task progress not found", err)
	}
	if err != nil {
		return nil, mapPQError(err, "task progress")
	}
	return p, nil
}
