package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	require.Equal(t,
		"SELECT id FROM vector_documents WHERE collection = $1 ORDER BY embedding <=> $2 LIMIT $3",
		Rebind("SELECT id FROM vector_documents WHERE collection = ? ORDER BY embedding <=> ? LIMIT ?"))
	require.Equal(t, "SELECT 1", Rebind("SELECT 1"))
}
