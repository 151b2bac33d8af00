package services

import (
	"chat-desk/auth"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const testOperatorSecret = "s3cret-operator"

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func testTokens() *auth.TokenIssuer {
	return auth.NewTokenIssuer([]byte("session-key-for-tests"), time.Hour)
}

func testGate() *auth.Gate {
	return auth.NewGate(testOperatorSecret, testTokens(), testLogger())
}

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
