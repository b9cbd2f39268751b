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
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/pointforge/pointforge/api/model"
	"github.com/pointforge/pointforge/model"
)

// CreateTask registers a new task definition.
func (a Api) CreateTask(c *gin.Context) {
	var req model2.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateCreateTask(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	task, err := a.pointforge.CreateTask(c.Request.Context(), &model.Task{
		TaskKey:          req.TaskKey,
		Title:            req.Title,
		Cadence:          model.TaskCadence(req.Cadence),
		TargetValue:      req.TargetValue,
		RewardPoints:     req.RewardPoints,
		BonusPoints:      req.BonusPoints,
		MinLevelRequired: req.MinLevelRequired,
		MaxCompletions:   req.MaxCompletions,
		IsActive:         req.IsActive,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// AssignTask opens progress for a user on a task.
func (a Api) AssignTask(c *gin.Context) {
	taskID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var req model2.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateAssignTask(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	progress, err := a.pointforge.AssignTask(c.Request.Context(), req.UserID, taskID, req.UserLevel)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, progress)
}

// UpdateTaskProgress advances a user's progress on a task.
func (a Api) UpdateTaskProgress(c *gin.Context) {
	taskID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var req model2.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateUpdateProgress(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	progress, err := a.pointforge.UpdateTaskProgress(c.Request.Context(), req.UserID, taskID, req.Increment)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ClaimTaskReward pays out a completed task.
func (a Api) ClaimTaskReward(c *gin.Context) {
	taskID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var req model2.ClaimRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateClaimReward(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txn, err := a.pointforge.ClaimTaskReward(c.Request.Context(), req.UserID, taskID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}
