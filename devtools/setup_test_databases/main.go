package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "setup_test_databases",
	Short: "Creates test databases for petclinic-e2e",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx := context.Background()

		devConn, err := pgx.Connect(ctx, "")
		if err != nil {
			return fmt.Errorf("connect to development database: %w", err)
		}
		defer devConn.Close(ctx)

		testConnConfig, err := pgx.ParseConfig("")
		if err != nil {
			return fmt.Errorf("parse test database URL: %w", err)
		}
		if testPGDatabase := os.Getenv("TEST_PGDATABASE"); testPGDatabase != "" {
			testConnConfig.Database = testPGDatabase
		}

		// Ensure test database name ends with _test before dropping it.
		if !strings.HasSuffix(testConnConfig.Database, "_test") {
			return fmt.Errorf("test database name %q must end with _test", testConnConfig.Database)
		}

		_, err = devConn.Exec(ctx, fmt.Sprintf("drop database if exists %s", pgx.Identifier{testConnConfig.Database}.Sanitize()))
		if err != nil {
			return fmt.Errorf("drop test database %q: %w", testConnConfig.Database, err)
		}

		_, err = devConn.Exec(ctx, fmt.Sprintf("create database %s", pgx.Identifier{testConnConfig.Database}.Sanitize()))
		if err != nil {
			return fmt.Errorf("create test database %q: %w", testConnConfig.Database, err)
		}

		testConn, err := pgx.ConnectConfig(ctx, testConnConfig)
		if err != nil {
			return fmt.Errorf("connect to test database: %w", err)
		}

		_, err = testConn.Exec(ctx, db.Schema)
		if err != nil {
			return fmt.Errorf("create schema: %w", err)
		}

		// Test databases are reset to the seed data when acquired. Loading it here as well lets the template be used
		// directly.
		err = db.ResetData(ctx, testConn)
		if err != nil {
			return fmt.Errorf("load seed data: %w", err)
		}

		_, err = testConn.Exec(ctx, `create schema testdb`)
		if err != nil {
			return fmt.Errorf("create testdb schema: %w", err)
		}

		_, err = testConn.Exec(ctx, `create table testdb.databases (name text primary key, acquirer_pid int)`)
		if err != nil {
			return fmt.Errorf("create testdb.databases table: %w", err)
		}

		var testDatabaseCount int
		if s := os.Getenv("TEST_DATABASE_COUNT"); s != "" {
			testDatabaseCount, err = strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("parse TEST_DATABASE_COUNT: %w", err)
			}
		} else {
			testDatabaseCount = runtime.NumCPU()
		}

		testDatabaseNames := make([]string, testDatabaseCount)
		for i := range testDatabaseNames {
			testDatabaseNames[i] = fmt.Sprintf("%s_%d", testConnConfig.Database, i)
		}

		for _, dbname := range testDatabaseNames {
			_, err = testConn.Exec(ctx, `insert into testdb.databases (name) values ($1)`, dbname)
			if err != nil {
				return fmt.Errorf("insert into testdb.databases: %w", err)
			}
		}

		err = testConn.Close(ctx)
		if err != nil {
			return fmt.Errorf("close test connection: %w", err)
		}

		for _, dbname := range testDatabaseNames {
			_, err = devConn.Exec(ctx, fmt.Sprintf("drop database if exists %s with (force)", pgx.Identifier{dbname}.Sanitize()))
			if err != nil {
				return fmt.Errorf("drop test database %q: %w", dbname, err)
			}

			_, err = devConn.Exec(ctx, fmt.Sprintf("create database %s template = %s", pgx.Identifier{dbname}.Sanitize(), pgx.Identifier{testConnConfig.Database}.Sanitize()))
			if err != nil {
				return fmt.Errorf("create test database %q: %w", dbname, err)
			}
		}

		return nil
	},
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
