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
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pointforge/pointforge"
	model2 "github.com/pointforge/pointforge/api/model"
	"github.com/pointforge/pointforge/model"
)

// AddPoints credits points to a user's account.
func (a Api) AddPoints(c *gin.Context) {
	var req model2.AddPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateAddPoints(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txn, err := a.pointforge.AddPoints(c.Request.Context(), pointforge.MutationRequest{
		UserID:            req.UserID,
		Type:              model.TransactionType(req.Type),
		Amount:            req.Amount,
		Description:       req.Description,
		RelatedUserID:     req.RelatedUserID,
		RelatedTaskID:     req.RelatedTaskID,
		RelatedTeamID:     req.RelatedTeamID,
		RelatedQuestionID: req.RelatedQuestionID,
		IdempotencyKey:    req.IdempotencyKey,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// SpendPoints debits points from a user's account.
func (a Api) SpendPoints(c *gin.Context) {
	var req model2.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateSpend(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txn, err := a.pointforge.Spend(c.Request.Context(), pointforge.MutationRequest{
		UserID:         req.UserID,
		Type:           model.TransactionType(req.Type),
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// ExchangePoints redeems points for an external item.
func (a Api) ExchangePoints(c *gin.Context) {
	var req model2.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateExchange(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txn, err := a.pointforge.Exchange(c.Request.Context(), req.UserID, req.Amount,
		pointforge.ExchangeKind(req.Kind), req.Target, req.IdempotencyKey)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// GetAccount returns the point account projection for a user.
func (a Api) GetAccount(c *gin.Context) {
	userID, passed := c.Params.Get("user_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required. pass user_id in the route /:user_id"})
		return
	}

	account, err := a.pointforge.GetAccount(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// GetTransactionHistory returns a page of ledger entries for a user.
func (a Api) GetTransactionHistory(c *gin.Context) {
	userID, passed := c.Params.Get("user_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required. pass user_id in the route /:user_id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	history, err := a.pointforge.GetTransactionHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetLeaderboard returns the top earners.
func (a Api) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := a.pointforge.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
