package mailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSMTPConfig(t *testing.T) {
	path := writeFile(t, `{
	// relay used by the helpdesk
	"smtp_config": {
		"host": "smtp.example.com",
		"port": 465,
		"username": "mailer",
		"password": "pw",
		"from_address": "noreply@example.com",
		"from_name": "Helpdesk",
	}
}`)

	cfg, err := LoadSMTPConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.Host)
	assert.Equal(t, 465, cfg.Port)
	assert.Equal(t, "mailer", cfg.Username)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, "noreply@example.com", cfg.FromAddress)
	assert.Equal(t, "Helpdesk", cfg.FromName)
}

func TestLoadSMTPConfig_DefaultPort(t *testing.T) {
	cfg, err := LoadSMTPConfig(writeFile(t, `{"smtp_config": {"host": "smtp.example.com"}}`))
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.Port)
}

func TestLoadSMTPConfig_MissingFile(t *testing.T) {
	cfg, err := LoadSMTPConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Host)
	assert.Equal(t, 587, cfg.Port)
}

func TestLoadSMTPConfig_NoObject(t *testing.T) {
	cfg, err := LoadSMTPConfig(writeFile(t, `{"other": {}}`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Host)
}

func TestLoadSMTPConfig_Malformed(t *testing.T) {
	_, err := LoadSMTPConfig(writeFile(t, `{"smtp_config": `))
	assert.Error(t, err)
}
