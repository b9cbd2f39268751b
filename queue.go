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
	"encoding/json"
	"errors"
	"log"

	"github.com/hibiken/asynq"

	"github.com/pointforge/pointforge/config"
	redis_db "github.com/pointforge/pointforge/internal/redis-db"
)

// Queue hands off post-commit work that must not sit on the mutation path:
// leaderboard refreshes and webhook deliveries.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// LeaderboardRefreshPayload carries the user whose denormalized point total
// needs recomputing.
type LeaderboardRefreshPayload struct {
	UserID string `json:"user_id"`
}

func NewQueue(conf *config.Configuration) *Queue {
	queueOptions, err := parseQueueRedis(conf)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

func parseQueueRedis(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}, nil
}

// queueLeaderboardRefresh enqueues a recompute of the user's leaderboard
// entry. Task IDs are keyed by user so rapid mutations collapse into one
// pending refresh.
func (q *Queue) queueLeaderboardRefresh(userID string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(LeaderboardRefreshPayload{UserID: userID})
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID("leaderboard:" + userID),
		asynq.Queue(cfg.Queue.LeaderboardQueue),
	}
	task := asynq.NewTask(cfg.Queue.LeaderboardQueue, payload, taskOptions...)
	_, err = q.Client.Enqueue(task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// A refresh is already pending for this user.
		return nil
	}
	if err != nil {
		log.Printf("error enqueueing leaderboard refresh for %s: %v", userID, err)
		return err
	}
	return nil
}
