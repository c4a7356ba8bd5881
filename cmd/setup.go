package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func setupLogger(logFormat string) *zerolog.Logger {
	var logWriter io.Writer
	if logFormat == "json" {
		logWriter = os.Stdout
	} else {
		logWriter = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	logger := zerolog.New(logWriter).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	return &logger
}

func setupPGXConnPool(ctx context.Context, databaseURL string, logger *zerolog.Logger) *pgxpool.Pool {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dbpool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create database pool")
	}

	err = dbpool.Ping(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	return dbpool
}

// hexKey decodes the hex encoded key s of the environment variable name. If s is empty a random key of size bytes
// is generated. That is fine for development but cookies do not survive a restart.
func hexKey(name, s string, size int, logger *zerolog.Logger) []byte {
	if s == "" {
		key := make([]byte, size)
		_, err := rand.Read(key)
		if err != nil {
			logger.Fatal().Err(err).Str("name", name).Msg("Failed to generate random key")
		}
		logger.Warn().Str("name", name).Msg("Key not set. Using a random key.")
		return key
	}

	key, err := hex.DecodeString(s)
	if err != nil {
		logger.Fatal().Err(err).Str("name", name).Msg("Failed to decode hex key")
	}
	if len(key) != size {
		logger.Fatal().Str("name", name).Int("size", len(key)).Int("expected_size", size).Msg("Key has wrong size")
	}
	return key
}
