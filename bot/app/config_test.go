package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
broker:
  url: nats://localhost:4222
user_service:
  host: localhost
  port: 8080
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "concerts.notifications", cfg.Broker.Subject)
	assert.Equal(t, "concert-mate-notifier", cfg.Broker.Queue)
	assert.Equal(t, "http://localhost:8080", cfg.UserService.BaseURL())
	assert.Equal(t, "longpoll", cfg.Core.Telegram.RunMode)
}

func TestLoadRejectsMissingBroker(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  token: "123:abc"
user_service:
  host: localhost
  port: 8080
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.url")
}

func TestLoadRejectsMissingUserService(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  token: "123:abc"
broker:
  url: nats://localhost:4222
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_service.host")
}

func TestLoadRejectsBadPort(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  token: "123:abc"
broker:
  url: nats://localhost:4222
user_service:
  host: localhost
  port: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_service.port")
}
