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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"

	"github.com/pointforge/pointforge"
	"github.com/pointforge/pointforge/config"
	redis_db "github.com/pointforge/pointforge/internal/redis-db"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// refreshLeaderboard recomputes a user's leaderboard entry from their point
// account. Tasks arrive from the mutation path's post-commit fanout.
func (b *pointforgeInstance) refreshLeaderboard(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("pointforge.workers").Start(ctx, "Refresh Leaderboard Entry")
	defer span.End()

	var payload pointforge.LeaderboardRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.service.RefreshLeaderboardEntry(ctx, payload.UserID); err != nil {
		logrus.Infof("Leaderboard refresh for %s pushed back for retry: %v", payload.UserID, err)
		return err
	}

	log.Println(" [*] Leaderboard Refreshed", payload.UserID)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.WebhookQueue] = 3
	queues[cfg.Queue.LeaderboardQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOption.Addr,
			Password: redisOption.Password,
			DB:       redisOption.DB,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *pointforgeInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.LeaderboardQueue, b.refreshLeaderboard)
	mux.HandleFunc(cfg.Queue.WebhookQueue, pointforge.ProcessWebhook)
}

// workerCommands defines the "workers" command to start worker processes.
func workerCommands(b *pointforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start pointforge workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			queues := initializeQueues()
			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run worker server: %v", err)
			}
		},
	}
	return cmd
}
