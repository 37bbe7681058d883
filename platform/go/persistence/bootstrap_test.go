package persistence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	sqlassets "github.com/zenGate-Global/palmyra-gacha/database"
)

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	stmts := SplitStatements("-- header\nCREATE TABLE a (id INT);\n\n-- trailing only\n;  ;CREATE INDEX b ON a (id);\n")
	require.Len(t, stmts, 2)
	require.True(t, strings.HasSuffix(stmts[0], "CREATE TABLE a (id INT)"))
	require.Equal(t, "CREATE INDEX b ON a (id)", stmts[1])
}

func TestEmbeddedSchemasSplit(t *testing.T) {
	t.Parallel()

	for name, script := range map[string]string{
		"postgres": sqlassets.PostgresCoreSQL,
		"sqlite":   sqlassets.SQLiteCoreSQL,
	} {
		stmts := SplitStatements(script)
		require.Len(t, stmts, 6, name)
		for _, stmt := range stmts {
			require.Contains(t, stmt, "CREATE", name)
		}
	}
}
