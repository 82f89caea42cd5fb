package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	require.Equal(t, "postgres://u@h/db", Config{DSN: "postgres://u@h/db", Host: "ignored"}.dsn())
	require.Equal(t,
		"host=pg port=5432 user=med password=secret dbname=rag sslmode=disable",
		Config{Host: "pg", User: "med", Password: "secret", DBName: "rag"}.dsn())
	require.Equal(t,
		"host=pg port=6543 user= password= dbname= sslmode=require",
		Config{Host: "pg", Port: 6543, SSLMode: "require"}.dsn())
}

func TestOpenRequiresTarget(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
}

func TestMigrationStatements(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/0001_vector_documents.sql")
	require.NoError(t, err)
	stmts := statements(string(content))
	require.Len(t, stmts, 3)
	require.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", stmts[0])
	require.Contains(t, stmts[1], "PRIMARY KEY (collection, id)")
}
