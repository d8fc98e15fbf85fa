package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the fields a given command mode depends on are set.
// Modes map one-to-one onto CLI commands so a missing credential fails fast
// at startup instead of mid-batch.
func (c *Config) Validate(mode string) error {
	var problems []string

	needDB := func() {
		if c.Database.URL == "" {
			problems = append(problems, "database.url is required")
		}
	}
	needStorage := func() {
		if c.Storage.Endpoint == "" {
			problems = append(problems, "storage.endpoint is required")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			problems = append(problems, "storage.access_key and storage.secret_key are required")
		}
	}
	needSecret := func() {
		if c.Gateway.HMACSecret == "" {
			problems = append(problems, "gateway.hmac_secret is required")
		}
	}

	switch mode {
	case "migrate", "status", "import", "geodata":
		needDB()
	case "serve":
		needDB()
		needStorage()
		needSecret()
		if c.Gateway.Port <= 0 {
			problems = append(problems, "gateway.port must be > 0")
		}
		if c.Gateway.MaxAttachments < 1 || c.Gateway.MaxAttachments > 10 {
			problems = append(problems, "gateway.max_attachments must be between 1 and 10")
		}
		if c.Gateway.MaxAttachmentMB <= 0 {
			problems = append(problems, "gateway.max_attachment_mb must be > 0")
		}
	case "extract":
		needDB()
		needStorage()
		if c.OCR.Provider == "mistral" && c.OCR.Key == "" {
			problems = append(problems, "ocr.key is required")
		}
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Extract.BatchSize < 1 || c.Extract.BatchSize > 50 {
			problems = append(problems, "extract.batch_size must be between 1 and 50")
		}
	case "enrich":
		needDB()
		if c.ZoomInfo.Username == "" || c.ZoomInfo.Password == "" {
			problems = append(problems, "zoominfo.username and zoominfo.password are required")
		}
		if c.Enrich.MinRevenue < 0 {
			problems = append(problems, "enrich.min_revenue must be >= 0")
		}
		if c.Enrich.BatchSize < 1 || c.Enrich.BatchSize > 50 {
			problems = append(problems, "enrich.batch_size must be between 1 and 50")
		}
	case "relay":
		needSecret()
		if c.Relay.FTPURL == "" {
			problems = append(problems, "relay.ftp_url is required")
		}
		if c.Relay.GatewayURL == "" {
			problems = append(problems, "relay.gateway_url is required")
		}
	case "crmsync":
		needDB()
		if c.Salesforce.ClientID == "" || c.Salesforce.Username == "" || c.Salesforce.KeyPath == "" {
			problems = append(problems, "salesforce.client_id, salesforce.username and salesforce.key_path are required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
