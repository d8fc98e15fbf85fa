package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Gateway    GatewayConfig    `yaml:"gateway" mapstructure:"gateway"`
	Queues     QueueConfig      `yaml:"queues" mapstructure:"queues"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	ZoomInfo   ZoomInfoConfig   `yaml:"zoominfo" mapstructure:"zoominfo"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Relay      RelayConfig      `yaml:"relay" mapstructure:"relay"`
	Media      MediaConfig      `yaml:"media" mapstructure:"media"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig configures the Postgres pool shared by stores and queues.
type DatabaseConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// StorageConfig configures the S3-compatible object store holding photo bytes.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// GatewayConfig configures the ingestion HTTP server and its trust boundary.
type GatewayConfig struct {
	Port             int           `yaml:"port" mapstructure:"port"`
	HMACSecret       string        `yaml:"hmac_secret" mapstructure:"hmac_secret"`
	FreshnessWindow  time.Duration `yaml:"freshness_window" mapstructure:"freshness_window"`
	MaxAttachments   int           `yaml:"max_attachments" mapstructure:"max_attachments"`
	MaxAttachmentMB  int64         `yaml:"max_attachment_mb" mapstructure:"max_attachment_mb"`
	AllowedOrigins   []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownGraceSec int           `yaml:"shutdown_grace_secs" mapstructure:"shutdown_grace_secs"`
}

// QueueConfig names the work queues the pipeline reads and writes.
type QueueConfig struct {
	PhotoProc     string `yaml:"photo_proc" mapstructure:"photo_proc"`
	ContactEnrich string `yaml:"contact_enrich" mapstructure:"contact_enrich"`
	MsgGen        string `yaml:"msg_gen" mapstructure:"msg_gen"`
}

// ExtractConfig configures the extraction worker.
type ExtractConfig struct {
	BatchSize         int `yaml:"batch_size" mapstructure:"batch_size"`
	VisibilitySecs    int `yaml:"visibility_secs" mapstructure:"visibility_secs"`
	PollIntervalSecs  int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
}

// EnrichConfig configures the contact enrichment worker.
type EnrichConfig struct {
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`
	VisibilitySecs    int     `yaml:"visibility_secs" mapstructure:"visibility_secs"`
	PollIntervalSecs  int     `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxConcurrentJobs int     `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	MinRevenue        float64 `yaml:"min_revenue" mapstructure:"min_revenue"`
	CascadePath       string  `yaml:"cascade_path" mapstructure:"cascade_path"`
}

// OCRConfig configures the OCR collaborator.
type OCRConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for the parse step.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ZoomInfoConfig holds enrichment vendor credentials and limits.
type ZoomInfoConfig struct {
	Username       string  `yaml:"username" mapstructure:"username"`
	Password       string  `yaml:"password" mapstructure:"password"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the crm sync command.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// RelayConfig configures the FTP drop relay.
type RelayConfig struct {
	FTPURL      string        `yaml:"ftp_url" mapstructure:"ftp_url"`
	GatewayURL  string        `yaml:"gateway_url" mapstructure:"gateway_url"`
	LedgerPath  string        `yaml:"ledger_path" mapstructure:"ledger_path"`
	SubmittedBy string        `yaml:"submitted_by" mapstructure:"submitted_by"`
	Location    string        `yaml:"location" mapstructure:"location"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// MediaConfig locates the external binaries behind the attachment normalizer.
type MediaConfig struct {
	FFmpegPath      string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	HeifConvertPath string `yaml:"heif_convert_path" mapstructure:"heif_convert_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("storage.bucket", "vehicle-photos")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.freshness_window", 5*time.Minute)
	v.SetDefault("gateway.max_attachments", 5)
	v.SetDefault("gateway.max_attachment_mb", 50)
	v.SetDefault("gateway.allowed_origins", []string{"*"})
	v.SetDefault("gateway.shutdown_grace_secs", 10)
	v.SetDefault("queues.photo_proc", "photo_proc")
	v.SetDefault("queues.contact_enrich", "contact_enrich")
	v.SetDefault("queues.msg_gen", "msg_gen")
	v.SetDefault("extract.batch_size", 5)
	v.SetDefault("extract.visibility_secs", 60)
	v.SetDefault("extract.poll_interval_secs", 15)
	v.SetDefault("extract.max_concurrent_jobs", 5)
	v.SetDefault("enrich.batch_size", 5)
	v.SetDefault("enrich.visibility_secs", 300)
	v.SetDefault("enrich.poll_interval_secs", 30)
	v.SetDefault("enrich.max_concurrent_jobs", 5)
	v.SetDefault("enrich.min_revenue", 2_000_000)
	v.SetDefault("ocr.provider", "mistral")
	v.SetDefault("ocr.base_url", "https://api.mistral.ai")
	v.SetDefault("ocr.model", "pixtral-large-latest")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("zoominfo.base_url", "https://api.zoominfo.com")
	v.SetDefault("zoominfo.requests_per_sec", 2)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("relay.ledger_path", "relay-ledger.db")
	v.SetDefault("relay.timeout", 30*time.Second)
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.heif_convert_path", "heif-convert")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
