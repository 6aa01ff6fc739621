package config

import "time"

// Config holds runtime settings for the dome client.
type Config struct {
	// ServerURL is the http(s) root of the server. The REST surface lives
	// under APIPrefix and the push channel under /ws.
	ServerURL      string
	APIPrefix      string
	RequestTimeout time.Duration
	// RequestsPerSecond throttles REST calls; zero disables throttling.
	RequestsPerSecond float64

	DatabasePath string
	// Language overrides the stored and the environment locale when set.
	Language string
	LogLevel string

	ReconnectAttempts  int
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string

	ExportDir string
	// ExportBucket switches board export from ExportDir to S3.
	ExportBucket    string
	ExportPrefix    string
	ExportRegion    string
	ExportEndpoint  string
	ExportAccessKey string
	ExportSecretKey string
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.APIPrefix = "/api"
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = "dome.db"
	c.LogLevel = "warn"
	c.ReconnectAttempts = 5
	c.ReconnectBaseDelay = 500 * time.Millisecond
	c.ReconnectMaxDelay = 10 * time.Second
	c.ExportDir = "exports"
}

// LoadConfig builds a Config from defaults, then a config file, then the
// environment, then command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
