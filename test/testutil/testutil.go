package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/testdb"
)

// InitTestDBManager performs the standard initialization of a *testdb.Manager. It requires a *testing.M to
// ensure it is only called by TestMain. It returns nil when DATABASE_URL is not set so tests that need a database can
// skip. If something else fails it calls os.Exit(1).
//
// Every acquired database is reset to the seed data.
func InitTestDBManager(*testing.M) *testdb.Manager {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil
	}

	testConnConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		fmt.Println("failed to init testdb.Manager: parse DATABASE_URL:", err)
		os.Exit(1)
	}

	manager := &testdb.Manager{
		ResetDB: func(ctx context.Context, conn *pgx.Conn) error {
			return db.ResetData(ctx, conn)
		},
		MakeConnConfig: func(t testing.TB, connConfig *pgx.ConnConfig) *pgx.ConnConfig {
			newConnConfig := testConnConfig.Copy()
			newConnConfig.Database = connConfig.Database
			return newConnConfig
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err = manager.Connect(ctx, "")
	if err != nil {
		fmt.Println("failed to init testdb.Manager:", err)
		os.Exit(1)
	}

	return manager
}

// AcquireDB acquires a database from manager or skips t if manager is nil.
func AcquireDB(t testing.TB, ctx context.Context, manager *testdb.Manager) *testdb.DB {
	t.Helper()
	if manager == nil {
		t.Skip("DATABASE_URL not set")
	}
	return manager.AcquireDB(t, ctx)
}
