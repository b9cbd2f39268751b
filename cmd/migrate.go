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
	"database/sql"
	"fmt"
	"log"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/pointforge/pointforge"
	"github.com/pointforge/pointforge/config"
)

// migrateCommands creates the root command for migration-related operations.
func migrateCommands(_ *pointforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "start pointforge migration",
	}

	cmd.AddCommand(migrateUpCommands())
	cmd.AddCommand(migrateDownCommands())

	return cmd
}

func migrationDB() (*sql.DB, migrate.EmbedFileSystemMigrationSource, error) {
	migrations := migrate.EmbedFileSystemMigrationSource{
		FileSystem: pointforge.SQLFiles,
		Root:       "sql",
	}

	cnf, err := config.Fetch()
	if err != nil {
		return nil, migrations, fmt.Errorf("error fetching config: %v", err)
	}

	db, err := sql.Open("postgres", cnf.DataSource.Dns)
	if err != nil {
		return nil, migrations, fmt.Errorf("error opening database: %v", err)
	}
	return db, migrations, nil
}

func migrateUpCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "up",
		Run: func(cmd *cobra.Command, args []string) {
			db, migrations, err := migrationDB()
			if err != nil {
				log.Println(err)
				return
			}

			n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
			if err != nil {
				log.Printf("Error migrating up: %v", err)
				return
			}
			log.Printf("Applied %d migrations!", n)
		},
	}
	return cmd
}

func migrateDownCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "down",
		Run: func(cmd *cobra.Command, args []string) {
			db, migrations, err := migrationDB()
			if err != nil {
				log.Println(err)
				return
			}

			n, err := migrate.Exec(db, "postgres", migrations, migrate.Down)
			if err != nil {
				log.Printf("Error migrating down: %v", err)
				return
			}
			log.Printf("Rolled back %d migrations!", n)
		},
	}
	return cmd
}
