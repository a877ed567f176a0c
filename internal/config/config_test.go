package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("TEST_DB_NAME", "social")
	t.Setenv("JWT_SECRET", "from-env")

	path := writeConfig(t, `
database:
  driver: mysql
  host: localhost
  user: root
  name: ${TEST_DB_NAME}
social:
  organizer_ids: [org-1, org-2]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "social", cfg.Database.Name)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 8082, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Social.ViewMaxConcurrency)
	assert.Equal(t, 2000, cfg.Social.MessageMaxLength)
	assert.Equal(t, 30, cfg.RateLimit.MessagesPerMinute)
	assert.True(t, cfg.Social.IsOrganizer("org-2"))
	assert.False(t, cfg.Social.IsOrganizer("someone"))
	assert.Equal(t, "root:@tcp(localhost:3306)/social?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.MySQLDSN())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: oracle\njwt:\n  secret: x\n"},
		{"missing secret", "database:\n  driver: sqlite\n"},
		{"malformed yaml", "database: [\n"},
		{"organizer id with separator", "database:\n  driver: sqlite\njwt:\n  secret: x\nsocial:\n  organizer_ids: [\"org_1\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(empty)", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "se**et", mask("secret"))
}
