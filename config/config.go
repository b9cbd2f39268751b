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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"POINTFORGE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"POINTFORGE_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"POINTFORGE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"POINTFORGE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"POINTFORGE_REDIS_DNS"`
}

// PointsConfig carries the knobs of the reward mutation path: how long a
// caller waits for the per-account lock, how long a lease shields a holder,
// how long idempotency outcomes shadow retries, and the minimum gap between
// reward-pool distributions.
type PointsConfig struct {
	LockWaitTimeoutSec        int `json:"lock_wait_timeout_sec" envconfig:"POINTFORGE_LOCK_WAIT_TIMEOUT_SEC"`
	LockLeaseSec              int `json:"lock_lease_sec" envconfig:"POINTFORGE_LOCK_LEASE_SEC"`
	IdempotencyTTLHours       int `json:"idempotency_ttl_hours" envconfig:"POINTFORGE_IDEMPOTENCY_TTL_HOURS"`
	DistributionIntervalHours int `json:"distribution_interval_hours" envconfig:"POINTFORGE_DISTRIBUTION_INTERVAL_HOURS"`
}

func (p PointsConfig) LockWaitTimeout() time.Duration {
	return time.Duration(p.LockWaitTimeoutSec) * time.Second
}

func (p PointsConfig) LockLease() time.Duration {
	return time.Duration(p.LockLeaseSec) * time.Second
}

func (p PointsConfig) IdempotencyTTL() time.Duration {
	return time.Duration(p.IdempotencyTTLHours) * time.Hour
}

func (p PointsConfig) DistributionInterval() time.Duration {
	return time.Duration(p.DistributionIntervalHours) * time.Hour
}

type QueueConfig struct {
	LeaderboardQueue string `json:"leaderboard_queue" envconfig:"POINTFORGE_QUEUE_LEADERBOARD"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"POINTFORGE_QUEUE_WEBHOOK"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"POINTFORGE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"POINTFORGE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"POINTFORGE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type Notification struct {
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"POINTFORGE_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"POINTFORGE_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Points          PointsConfig     `json:"points"`
	Queue           QueueConfig      `json:"queue"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("pointforge", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called pointforge.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Pointforge Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Points.LockWaitTimeoutSec <= 0 {
		cnf.Points.LockWaitTimeoutSec = 5
	}
	if cnf.Points.LockLeaseSec <= 0 {
		cnf.Points.LockLeaseSec = 10
	}
	if cnf.Points.IdempotencyTTLHours <= 0 {
		cnf.Points.IdempotencyTTLHours = 24
	}
	if cnf.Points.DistributionIntervalHours <= 0 {
		cnf.Points.DistributionIntervalHours = 24
	}

	if cnf.Queue.LeaderboardQueue == "" {
		cnf.Queue.LeaderboardQueue = "leaderboard_refresh"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "webhook_delivery"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if err := mockConfig.validateAndAddDefaults(); err != nil {
		// Tests pass partial configurations; defaults matter more than
		// validation here.
		log.Printf("mock config validation: %v", err)
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
