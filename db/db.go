package db

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgxutil"
)

// Schema creates the owners, types, pets, and visits tables.
//
//go:embed schema.sql
var Schema string

// Seed truncates every table and loads the sample pet clinic data. Owner 1 is George Franklin.
//
//go:embed seed.sql
var Seed string

// Session is the application's handle to the database. It satisfies pgxutil.DB.
type Session struct {
	*pgxpool.Pool
}

func NewSession(pool *pgxpool.Pool) *Session {
	return &Session{Pool: pool}
}

// GetCurrentTime returns the current time from the database.
func GetCurrentTime(ctx context.Context, db pgxutil.DB) (time.Time, error) {
	var currentTime time.Time
	err := db.QueryRow(ctx, "select now()").Scan(&currentTime)
	if err != nil {
		return time.Time{}, err
	}

	return currentTime, nil
}

// ResetData replaces all data with the seed data.
func ResetData(ctx context.Context, db pgxutil.DB) error {
	_, err := db.Exec(ctx, Seed)
	return err
}
