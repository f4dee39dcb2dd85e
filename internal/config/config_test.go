package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadConfigFromEnv_Minimal(t *testing.T) {
	setEnv(t, map[string]string{
		"BUCKET_NAME":           "my-bucket",
		"AWS_ACCESS_KEY_ID":     "key",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"AWS_ENDPOINT_URL_S3":   "https://fly.storage.tigris.dev",
		"AUTH_ENCRYPTION_KEY":   "0123456789abcdef",
	})

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "my-bucket", cfg.Store.BucketName)
	assert.False(t, cfg.IsWebhookDriven())
}

func TestLoadConfigFromEnv_WebhookDriven(t *testing.T) {
	setEnv(t, map[string]string{
		"BUCKET_NAME":           "my-bucket",
		"AWS_ACCESS_KEY_ID":     "key",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"AWS_ENDPOINT_URL_S3":   "https://fly.storage.tigris.dev",
		"AUTH_ENCRYPTION_KEY":   "0123456789abcdef",
		"TIGRIS_TOKEN":          "whsec_abc",
	})

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsWebhookDriven())
}

func TestLoadConfigFromEnv_MissingRequired(t *testing.T) {
	os.Clearenv()
	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0, ReadHeaderTimeout: 1, GracefulShutdownTimeout: 1, ReloadInterval: 1},
		Store: StoreConfig{
			BucketName: "b", AccessKeyID: "a", SecretAccessKey: "s",
			EndpointURL: "https://example.com",
		},
		Auth: AuthConfig{EncryptionKey: "0123456789abcdef"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
	require.Error(t, Validate(cfg))
}
