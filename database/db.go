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
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pointforge/pointforge/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "pinging database")
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	for _, create := range []func(*sql.DB) error{
		createPointAccountTable,
		createPointTransactionTable,
		createTaskTables,
		createTeamTables,
		createReferralTable,
	} {
		if err := create(db); err != nil {
			return err
		}
	}
	return nil
}

func createPointAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS point_accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL UNIQUE,
			available_points BIGINT NOT NULL DEFAULT 0 CHECK (available_points >= 0),
			frozen_points BIGINT NOT NULL DEFAULT 0 CHECK (frozen_points >= 0),
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_spent BIGINT NOT NULL DEFAULT 0,
			points_from_referral BIGINT NOT NULL DEFAULT 0,
			points_from_task BIGINT NOT NULL DEFAULT 0,
			points_from_quiz BIGINT NOT NULL DEFAULT 0,
			points_from_team BIGINT NOT NULL DEFAULT 0,
			points_from_purchase BIGINT NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return errors.Wrap(err, "creating point_accounts table")
}

func createPointTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS point_transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount <> 0),
			balance_after BIGINT NOT NULL,
			related_user_id TEXT,
			related_task_id TEXT,
			related_team_id TEXT,
			related_question_id TEXT,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'APPLIED',
			idempotency_key TEXT UNIQUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_point_transactions_user ON point_transactions (user_id, created_at DESC)
	`)
	return errors.Wrap(err, "creating point_transactions table")
}

func createTaskTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id SERIAL PRIMARY KEY,
			task_id TEXT NOT NULL UNIQUE,
			task_key TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			cadence TEXT NOT NULL,
			target_value BIGINT NOT NULL DEFAULT 1,
			reward_points BIGINT NOT NULL DEFAULT 0,
			bonus_points BIGINT NOT NULL DEFAULT 0,
			min_level_required INT NOT NULL DEFAULT 0,
			max_completions INT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			start_time TIMESTAMP,
			end_time TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS task_progress (
			id SERIAL PRIMARY KEY,
			progress_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			task_id TEXT NOT NULL REFERENCES tasks(task_id),
			current_value BIGINT NOT NULL DEFAULT 0,
			target_value BIGINT NOT NULL,
			reward_points BIGINT NOT NULL,
			bonus_points BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			completion_count INT NOT NULL DEFAULT 0,
			is_claimed BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMP,
			completed_at TIMESTAMP,
			claimed_at TIMESTAMP,
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_task_progress_user ON task_progress (user_id, task_id)
	`)
	return errors.Wrap(err, "creating task tables")
}

func createTeamTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS teams (
			id SERIAL PRIMARY KEY,
			team_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			reward_pool BIGINT NOT NULL DEFAULT 0 CHECK (reward_pool >= 0),
			last_distribution_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS team_members (
			id SERIAL PRIMARY KEY,
			member_id TEXT NOT NULL UNIQUE,
			team_id TEXT NOT NULL REFERENCES teams(team_id),
			user_id TEXT NOT NULL,
			contribution_points BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (team_id, user_id)
		)
	`)
	return errors.Wrap(err, "creating team tables")
}

func createReferralTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS referral_relations (
			id SERIAL PRIMARY KEY,
			relation_id TEXT NOT NULL UNIQUE,
			referee_id TEXT NOT NULL UNIQUE,
			referrer_id TEXT NOT NULL,
			level INT NOT NULL DEFAULT 1,
			total_rewards_given BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_referral_referrer ON referral_relations (referrer_id)
	`)
	return errors.Wrap(err, "creating referral_relations table")
}
