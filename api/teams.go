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
)

// CreateTeam registers a new team.
func (a Api) CreateTeam(c *gin.Context) {
	var req model2.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateCreateTeam(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	team, err := a.pointforge.CreateTeam(c.Request.Context(), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// JoinTeam adds a user to a team.
func (a Api) JoinTeam(c *gin.Context) {
	teamID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var req model2.JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateJoinTeam(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	member, err := a.pointforge.JoinTeam(c.Request.Context(), teamID, req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// FundRewardPool credits a team's reward pool.
func (a Api) FundRewardPool(c *gin.Context) {
	teamID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	var req model2.FundPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateFundPool(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	team, err := a.pointforge.AddToRewardPool(c.Request.Context(), teamID, req.Amount)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// DistributeRewardPool splits the team pool across its active members.
func (a Api) DistributeRewardPool(c *gin.Context) {
	teamID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	result, err := a.pointforge.DistributeRewardPool(c.Request.Context(), teamID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LinkReferral records who invited a user.
func (a Api) LinkReferral(c *gin.Context) {
	var req model2.LinkReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := req.ValidateLinkReferral(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	relation, err := a.pointforge.LinkReferral(c.Request.Context(), req.RefereeID, req.ReferrerID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, relation)
}
