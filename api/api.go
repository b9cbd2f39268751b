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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pointforge/pointforge"
	"github.com/pointforge/pointforge/api/middleware"
	"github.com/pointforge/pointforge/config"
	"github.com/pointforge/pointforge/internal/apierror"
)

type Api struct {
	pointforge *pointforge.Pointforge
	router     *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/points/add", a.AddPoints)
	router.POST("/points/spend", a.SpendPoints)
	router.POST("/points/exchange", a.ExchangePoints)
	router.GET("/points/accounts/:user_id", a.GetAccount)
	router.GET("/points/accounts/:user_id/transactions", a.GetTransactionHistory)
	router.GET("/points/leaderboard", a.GetLeaderboard)

	router.POST("/tasks", a.CreateTask)
	router.POST("/tasks/:id/assign", a.AssignTask)
	router.POST("/tasks/:id/progress", a.UpdateTaskProgress)
	router.POST("/tasks/:id/claim", a.ClaimTaskReward)

	router.POST("/teams", a.CreateTeam)
	router.POST("/teams/:id/members", a.JoinTeam)
	router.POST("/teams/:id/pool", a.FundRewardPool)
	router.POST("/teams/:id/distribute", a.DistributeRewardPool)

	router.POST("/referrals", a.LinkReferral)

	return a.router
}

func NewAPI(service *pointforge.Pointforge) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware("pointforge.api"))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{pointforge: service, router: r}
}

// handleError converts a service error into its HTTP shape. Typed errors
// carry their own status; anything else becomes a 500.
func handleError(c *gin.Context, err error) {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
