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

	"github.com/sirupsen/logrus"

	"github.com/pointforge/pointforge/internal/apierror"
	"github.com/pointforge/pointforge/internal/idempotency"
	"github.com/pointforge/pointforge/model"
)

// CreateTask registers a new task definition.
func (p *Pointforge) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	if task.TaskID == "" {
		task.TaskID = model.GenerateUUIDWithSuffix("tsk")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.TargetValue <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "target value must be positive", nil)
	}
	return p.datasource.CreateTask(ctx, task)
}

// AssignTask opens a progress row for a user on a task. The caller supplies
// the user's level since profile data lives outside this service. Assigning
// an already-open task returns the existing row unchanged.
func (p *Pointforge) AssignTask(ctx context.Context, userID, taskID string, userLevel int) (*model.TaskProgress, error) {
	ctx, span := tracer.Start(ctx, "Assigning task")
	defer span.End()

	task, err := p.datasource.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !task.IsActive || !task.ActiveWindowContains(now) {
		return nil, apierror.NewAPIError(apierror.ErrExpired, fmt.Sprintf("task %s is not open", taskID), nil)
	}
	if userLevel < task.MinLevelRequired {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("task %s requires level %d", taskID, task.MinLevelRequired), nil)
	}

	existing, err := p.datasource.GetOpenTaskProgress(ctx, userID, taskID)
	if err == nil {
		if existing.ClaimedAt != nil && inCooldown(task.Cadence, *existing.ClaimedAt, now) {
			return nil, apierror.NewAPIError(apierror.ErrTooSoon,
				fmt.Sprintf("task %s already completed this %s", taskID, task.Cadence), nil)
		}
		return existing, nil
	}
	if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	// No open row. A rewarded newest row means the task is finished for this
	// user, either one-shot or repeatable with its completion quota spent.
	// An expired row does not block a fresh attempt.
	latest, err := p.datasource.GetLatestTaskProgress(ctx, userID, taskID)
	if err == nil && latest.Status == model.ProgressRewarded {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("task %s already rewarded", taskID), nil)
	}
	if err != nil && !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	progress := &model.TaskProgress{
		ProgressID:   model.GenerateUUIDWithSuffix("prg"),
		UserID:       userID,
		TaskID:       taskID,
		CurrentValue: 0,
		TargetValue:  task.TargetValue,
		RewardPoints: task.RewardPoints,
		BonusPoints:  task.BonusPoints,
		Status:       model.ProgressInProgress,
		ExpiresAt:    progressExpiry(task, now),
		CreatedAt:    now,
	}
	return p.datasource.CreateTaskProgress(ctx, progress)
}

// UpdateTaskProgress advances a user's progress on a task by increment.
// Progress is clamped at the target and never regresses. Reaching the target
// moves the row to COMPLETED; touching an expired row moves it to EXPIRED
// and fails.
func (p *Pointforge) UpdateTaskProgress(ctx context.Context, userID, taskID string, increment int64) (*model.TaskProgress, error) {
	ctx, span := tracer.Start(ctx, "Updating task progress")
	defer span.End()

	if increment <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "increment must be positive", nil)
	}

	progress, err := p.datasource.GetOpenTaskProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if progress.Expired(now) {
		progress.Status = model.ProgressExpired
		if err := p.datasource.UpdateTaskProgress(ctx, progress); err != nil {
			logrus.Error("marking progress expired: ", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrExpired,
			fmt.Sprintf("progress on task %s has expired", taskID), nil)
	}
	// AVAILABLE only occurs on rows reset by a repeatable claim; anything
	// else that is not IN_PROGRESS cannot advance.
	if progress.Status == model.ProgressCompleted {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("task %s is already completed, claim the reward", taskID), nil)
	}
	if progress.ClaimedAt != nil && inCooldown(cadenceOf(ctx, p, progress), *progress.ClaimedAt, now) {
		return nil, apierror.NewAPIError(apierror.ErrTooSoon,
			fmt.Sprintf("task %s already completed this cycle", taskID), nil)
	}

	progress.CurrentValue += increment
	if progress.CurrentValue >= progress.TargetValue {
		progress.CurrentValue = progress.TargetValue
		progress.Status = model.ProgressCompleted
		progress.CompletedAt = &now
	} else {
		progress.Status = model.ProgressInProgress
	}
	if err := p.datasource.UpdateTaskProgress(ctx, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// ClaimTaskReward pays out a completed task. The credit is idempotent per
// completion cycle, so a retried claim cannot double-award. Repeatable tasks
// reset to AVAILABLE for the next cycle; one-shot tasks end at REWARDED.
func (p *Pointforge) ClaimTaskReward(ctx context.Context, userID, taskID string) (*model.PointTransaction, error) {
	ctx, span := tracer.Start(ctx, "Claiming task reward")
	defer span.End()

	progress, err := p.datasource.GetOpenTaskProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress.Status != model.ProgressCompleted || progress.IsClaimed {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("task %s is not completed", taskID), nil)
	}
	task, err := p.datasource.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	amount := progress.RewardPoints + progress.BonusPoints
	txn, err := p.AddPoints(ctx, MutationRequest{
		UserID:         userID,
		Type:           model.TypeTaskReward,
		Amount:         amount,
		Description:    fmt.Sprintf("reward for task %s", task.Title),
		RelatedTaskID:  taskID,
		IdempotencyKey: idempotency.DeriveKey("task-claim", progress.ProgressID, fmt.Sprintf("%d", progress.CompletionCount)),
	})
	if err != nil {
		return nil, logAndRecordError(span, "crediting task reward: ", err)
	}

	now := time.Now()
	progress.CompletionCount++
	progress.ClaimedAt = &now
	if task.Cadence != model.CadenceOnce && task.Repeatable(progress.CompletionCount) {
		progress.Status = model.ProgressAvailable
		progress.CurrentValue = 0
		progress.CompletedAt = nil
		progress.IsClaimed = false
		progress.ExpiresAt = nextCycleExpiry(task, now)
	} else {
		progress.Status = model.ProgressRewarded
		progress.IsClaimed = true
	}
	if err := p.datasource.UpdateTaskProgress(ctx, progress); err != nil {
		// The credit is already committed and replay-guarded; the state
		// transition can be retried safely.
		return nil, logAndRecordError(span, "recording claim: ", err)
	}

	if err := SendWebhook(NewWebhook{Event: EventTaskRewarded, Payload: txn}); err != nil {
		logrus.Error("sending webhook: ", err)
	}
	return txn, nil
}

// progressExpiry derives when a progress row lapses: end of the current UTC
// day for daily tasks, end of the current ISO week for weekly tasks, the
// task's own end time for one-shot tasks.
func progressExpiry(task *model.Task, now time.Time) *time.Time {
	switch task.Cadence {
	case model.CadenceDaily:
		end := periodStart(model.CadenceDaily, now).AddDate(0, 0, 1)
		return &end
	case model.CadenceWeekly:
		end := periodStart(model.CadenceWeekly, now).AddDate(0, 0, 7)
		return &end
	default:
		return task.EndTime
	}
}

// nextCycleExpiry is the expiry for a progress row reset at claim time: the
// row belongs to the next cadence period, not the one the claim landed in.
func nextCycleExpiry(task *model.Task, now time.Time) *time.Time {
	switch task.Cadence {
	case model.CadenceDaily:
		end := periodStart(model.CadenceDaily, now).AddDate(0, 0, 2)
		return &end
	case model.CadenceWeekly:
		end := periodStart(model.CadenceWeekly, now).AddDate(0, 0, 14)
		return &end
	default:
		return task.EndTime
	}
}

// periodStart truncates t to the start of its cadence period in UTC.
func periodStart(cadence model.TaskCadence, t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if cadence != model.CadenceWeekly {
		return day
	}
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, 1-weekday)
}

// inCooldown reports whether a claim at claimedAt still blocks the current
// period.
func inCooldown(cadence model.TaskCadence, claimedAt, now time.Time) bool {
	switch cadence {
	case model.CadenceDaily, model.CadenceWeekly:
		return periodStart(cadence, claimedAt).Equal(periodStart(cadence, now))
	default:
		return false
	}
}

func cadenceOf(ctx context.Context, p *Pointforge, progress *model.TaskProgress) model.TaskCadence {
	task, err := p.datasource.GetTask(ctx, progress.TaskID)
	if err != nil {
		return model.CadenceOnce
	}
	return task.Cadence
}
