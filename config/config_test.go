package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	config := DefaultServerConfig()

	assert.Equal(t, 3000, config.Port)
	assert.Equal(t, "0.0.0.0:3000", config.Addr())
	assert.Equal(t, DriverPebble, config.Store.Driver)
	assert.Equal(t, 24*time.Hour, config.Auth.TokenTTL)
	assert.Equal(t, 10, config.Auth.BcryptCost)
	assert.Equal(t, 5, config.Auth.VerifyMaxAttempts)
	assert.Equal(t, time.Minute, config.Auth.VerifyWindow)
	assert.Equal(t, SMTPTLSOpportunistic, config.SMTP.TLSPolicy)
	assert.NoError(t, config.Validate())
}

func TestLoadServerConfig(t *testing.T) {
	t.Run("YAMLThenEnv", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "finledger.yaml")
		content := []byte(`
port: 4000
shutdown_timeout: 3s
store:
  driver: pebble
  pebble_path: /var/lib/finledger
auth:
  jwt_secret: from-file
  token_ttl: 2h
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		t.Setenv("JWT_SECRET", "from-env")
		t.Setenv("PORT", "")

		config, err := LoadServerConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 4000, config.Port)
		assert.Equal(t, 3*time.Second, config.ShutdownTimeout)
		assert.Equal(t, "/var/lib/finledger", config.Store.PebblePath)
		assert.Equal(t, 2*time.Hour, config.Auth.TokenTTL)
		assert.Equal(t, "from-env", config.Auth.JWTSecret)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("PORT", "8081")
		t.Setenv("FINLEDGER_STORE", DriverPostgres)
		t.Setenv("DB_DSN", "postgres://localhost/finledger")
		t.Setenv("EMAIL_USER", "noreply@example.com")
		t.Setenv("FINLEDGER_BCRYPT_COST", "4")

		config, err := LoadServerConfig("")
		require.NoError(t, err)
		assert.Equal(t, 8081, config.Port)
		assert.Equal(t, DriverPostgres, config.Store.Driver)
		assert.Equal(t, "postgres://localhost/finledger", config.Store.DSN)
		assert.Equal(t, "noreply@example.com", config.SMTP.From)
		assert.Equal(t, 4, config.Auth.BcryptCost)
	})

	t.Run("InvalidValuesIgnored", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		t.Setenv("FINLEDGER_BCRYPT_COST", "99")

		config, err := LoadServerConfig("")
		require.NoError(t, err)
		assert.Equal(t, 3000, config.Port)
		assert.Equal(t, 10, config.Auth.BcryptCost)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("SMTPTLS", func(t *testing.T) {
		t.Setenv("SMTP_TLS_POLICY", SMTPTLSMandatory)
		t.Setenv("SMTP_INSECURE_SKIP_VERIFY", "true")
		config, err := LoadServerConfig("")
		require.NoError(t, err)
		assert.Equal(t, SMTPTLSMandatory, config.SMTP.TLSPolicy)
		assert.True(t, config.SMTP.InsecureSkipVerify)

		t.Setenv("SMTP_TLS_POLICY", "sometimes")
		_, err = LoadServerConfig("")
		assert.Error(t, err)
	})

	t.Run("PostgresWithoutDSN", func(t *testing.T) {
		t.Setenv("FINLEDGER_STORE", DriverPostgres)
		t.Setenv("DB_DSN", "")
		_, err := LoadServerConfig("")
		assert.Error(t, err)
	})
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("FINLEDGER_SERVER", "http://ledger.local:3000")
	t.Setenv("FINLEDGER_SESSION", "/tmp/session.json")
	t.Setenv("FINLEDGER_TIMEOUT", "5s")

	config := LoadClientConfig()
	assert.Equal(t, "http://ledger.local:3000", config.ServerURL)
	assert.Equal(t, "/tmp/session.json", config.SessionPath)
	assert.Equal(t, 5*time.Second, config.Timeout)
}
