package conf

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is a stand-in for testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir()) // no config file on disk

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, settings.Server.Port)
	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, "data/obralens.db", settings.Database.SQLite.Path)
	assert.Equal(t, 24*time.Hour, settings.Auth.TokenTTL)
	assert.False(t, settings.IsProduction())
}

func TestLoadRejectsUnknownDatabaseType(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("OBRALENS_DATABASE_TYPE", "mongodb")

	_, err := Load()
	assert.Error(t, err)
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("OBRALENS_ENVIRONMENT", "production")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("OBRALENS_AUTH_JWTSECRET", "sekrit")
	settings, err := Load()
	require.NoError(t, err)
	assert.True(t, settings.IsProduction())
}
