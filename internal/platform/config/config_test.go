package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("VERITAS_ENV", "dev")
	t.Setenv("JWT_SIGNING_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 365, cfg.Verification.DaysGoodFor)
	assert.Equal(t, 365*24*time.Hour, cfg.Verification.Validity())
	assert.Equal(t, 10*time.Second, cfg.Verification.SoftwareSecure.Timeout)
	assert.NotEmpty(t, cfg.JWTSigningKey, "dev mode falls back to a development key")
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("VERIFY_DAYS_GOOD_FOR", "30")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SOFTWARE_SECURE_TIMEOUT", "2s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Verification.DaysGoodFor)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Verification.SoftwareSecure.Timeout)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("malformed values are reported", func(t *testing.T) {
		t.Setenv("VERIFY_DAYS_GOOD_FOR", "a year")
		t.Setenv("SOFTWARE_SECURE_TIMEOUT", "soon")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "VERIFY_DAYS_GOOD_FOR")
		assert.Contains(t, err.Error(), "SOFTWARE_SECURE_TIMEOUT")
	})

	t.Run("production requires a signing key", func(t *testing.T) {
		t.Setenv("VERITAS_ENV", "production")
		t.Setenv("JWT_SIGNING_KEY", "")

		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestFromEnv_MediaBackend(t *testing.T) {
	t.Run("oss bucket settings", func(t *testing.T) {
		t.Setenv("MEDIA_BACKEND", "oss")
		t.Setenv("MEDIA_OSS_ENDPOINT", "oss-ap-southeast-1.aliyuncs.com")
		t.Setenv("MEDIA_OSS_BUCKET", "veritas-photos")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, "oss", cfg.Media.Backend)
		assert.Equal(t, "veritas-photos", cfg.Media.OSS.Bucket)
		assert.Equal(t, "veritas", cfg.Media.OSS.Prefix)
	})

	t.Run("oss without bucket", func(t *testing.T) {
		t.Setenv("MEDIA_BACKEND", "oss")
		t.Setenv("MEDIA_OSS_BUCKET", "")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MEDIA_OSS_BUCKET")
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("MEDIA_BACKEND", "s3")

		_, err := FromEnv()
		assert.ErrorContains(t, err, "MEDIA_BACKEND")
	})
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PLATFORM_NAME=FromFile\nVERITAS_ADDR=:9999\n"), 0o600))

	t.Setenv("VERITAS_ADDR", ":7000")
	t.Setenv("PLATFORM_NAME", "")
	require.NoError(t, os.Unsetenv("PLATFORM_NAME"))
	t.Cleanup(func() { _ = os.Unsetenv("PLATFORM_NAME") })

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "FromFile", cfg.Verification.PlatformName)
}
