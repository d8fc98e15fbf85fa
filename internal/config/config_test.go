package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, 5*time.Minute, cfg.Gateway.FreshnessWindow)
	assert.Equal(t, 5, cfg.Gateway.MaxAttachments)
	assert.Equal(t, int64(50), cfg.Gateway.MaxAttachmentMB)
	assert.Equal(t, "photo_proc", cfg.Queues.PhotoProc)
	assert.Equal(t, "contact_enrich", cfg.Queues.ContactEnrich)
	assert.Equal(t, "msg_gen", cfg.Queues.MsgGen)
	assert.Equal(t, 5, cfg.Extract.BatchSize)
	assert.Equal(t, 60, cfg.Extract.VisibilitySecs)
	assert.Equal(t, 5, cfg.Enrich.BatchSize)
	assert.Equal(t, 300, cfg.Enrich.VisibilitySecs)
	assert.InDelta(t, 2_000_000, cfg.Enrich.MinRevenue, 0.001)
	assert.Equal(t, "mistral", cfg.OCR.Provider)
	assert.Equal(t, "pixtral-large-latest", cfg.OCR.Model)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "https://api.zoominfo.com", cfg.ZoomInfo.BaseURL)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, "vehicle-photos", cfg.Storage.Bucket)
	assert.Equal(t, "ffmpeg", cfg.Media.FFmpegPath)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
gateway:
  port: 9090
  max_attachments: 3
enrich:
  min_revenue: 500000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Gateway.Port)
	assert.Equal(t, 3, cfg.Gateway.MaxAttachments)
	assert.InDelta(t, 500_000, cfg.Enrich.MinRevenue, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Extract.BatchSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSNAP_LOG_LEVEL", "warn")
	t.Setenv("LEADSNAP_GATEWAY_HMAC_SECRET", "shh")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "shh", cfg.Gateway.HMACSecret)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADSNAP_GATEWAY_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Gateway.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validBase returns a Config with enough populated for validation tests.
func validBase() *Config {
	cfg := &Config{}
	cfg.Database.URL = "postgres://localhost/leadsnap"
	cfg.Storage.Endpoint = "localhost:9000"
	cfg.Storage.AccessKey = "minio"
	cfg.Storage.SecretKey = "minio123"
	cfg.Gateway.HMACSecret = "secret"
	cfg.Gateway.Port = 8080
	cfg.Gateway.MaxAttachments = 5
	cfg.Gateway.MaxAttachmentMB = 50
	cfg.Extract.BatchSize = 5
	cfg.Enrich.BatchSize = 5
	return cfg
}

func TestValidateServe_AllPresent(t *testing.T) {
	assert.NoError(t, validBase().Validate("serve"))
}

func TestValidateServe_MissingFields(t *testing.T) {
	cfg := &Config{}
	cfg.Gateway.Port = 8080
	cfg.Gateway.MaxAttachments = 5
	cfg.Gateway.MaxAttachmentMB = 50

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url is required")
	assert.Contains(t, err.Error(), "storage.endpoint is required")
	assert.Contains(t, err.Error(), "gateway.hmac_secret is required")
}

func TestValidateServe_AttachmentBounds(t *testing.T) {
	cfg := validBase()

	cfg.Gateway.MaxAttachments = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attachments must be between 1 and 10")

	cfg.Gateway.MaxAttachments = 11
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attachments must be between 1 and 10")

	cfg.Gateway.MaxAttachments = 10
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateExtract_RequiresKeys(t *testing.T) {
	cfg := validBase()
	cfg.OCR.Provider = "mistral"

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.key is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.OCR.Key = "ocr-key"
	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateEnrich_RequiresVendorCreds(t *testing.T) {
	cfg := validBase()

	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zoominfo.username and zoominfo.password are required")

	cfg.ZoomInfo.Username = "svc"
	cfg.ZoomInfo.Password = "pw"
	assert.NoError(t, cfg.Validate("enrich"))

	cfg.Enrich.MinRevenue = -1
	err = cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_revenue must be >= 0")
}

func TestValidateRelay(t *testing.T) {
	cfg := validBase()

	err := cfg.Validate("relay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.ftp_url is required")
	assert.Contains(t, err.Error(), "relay.gateway_url is required")

	cfg.Relay.FTPURL = "ftp://cameras.example.com/drop"
	cfg.Relay.GatewayURL = "http://localhost:8080"
	assert.NoError(t, cfg.Validate("relay"))
}

func TestValidateCRMSync(t *testing.T) {
	cfg := validBase()

	err := cfg.Validate("crmsync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id")

	cfg.Salesforce.ClientID = "cid"
	cfg.Salesforce.Username = "user@example.com"
	cfg.Salesforce.KeyPath = "/etc/sf.key"
	assert.NoError(t, cfg.Validate("crmsync"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validBase().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
