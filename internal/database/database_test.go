package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	require.Equal(t, "tasks.db?_pragma=foreign_keys(1)", dsn("tasks.db"))
	require.Equal(t, "tasks.db?mode=rwc&_pragma=foreign_keys(1)", dsn("tasks.db?mode=rwc"))
	require.Equal(t, ":memory:", dsn(":memory:"))
}

func TestOpen_MigratesSchema(t *testing.T) {
	db, err := Open(":memory:", logger.Silent)
	require.NoError(t, err)

	for _, table := range []string{"tasks", "task_assignments", "users"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}
