package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/dome/internal/flagx"
	"github.com/dmitrijs2005/dome/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Pointer fields distinguish
// "absent" from a zero value so a file only overrides what it names.
type FileConfig struct {
	ServerURL         *string         `json:"server_url" yaml:"server_url"`
	APIPrefix         *string         `json:"api_prefix" yaml:"api_prefix"`
	RequestTimeout    *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond *float64        `json:"requests_per_second" yaml:"requests_per_second"`

	DatabasePath *string `json:"database_path" yaml:"database_path"`
	Language     *string `json:"language" yaml:"language"`
	LogLevel     *string `json:"log_level" yaml:"log_level"`

	ReconnectAttempts  *int            `json:"reconnect_attempts" yaml:"reconnect_attempts"`
	ReconnectBaseDelay *timex.Duration `json:"reconnect_base_delay" yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  *timex.Duration `json:"reconnect_max_delay" yaml:"reconnect_max_delay"`

	MetricsAddr *string `json:"metrics_addr" yaml:"metrics_addr"`

	ExportDir       *string `json:"export_dir" yaml:"export_dir"`
	ExportBucket    *string `json:"export_bucket" yaml:"export_bucket"`
	ExportPrefix    *string `json:"export_prefix" yaml:"export_prefix"`
	ExportRegion    *string `json:"export_region" yaml:"export_region"`
	ExportEndpoint  *string `json:"export_endpoint" yaml:"export_endpoint"`
	ExportAccessKey *string `json:"export_access_key" yaml:"export_access_key"`
	ExportSecretKey *string `json:"export_secret_key" yaml:"export_secret_key"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
// Read and decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.APIPrefix, fc.APIPrefix)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	if fc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *fc.RequestsPerSecond
	}
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.Language, fc.Language)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.ReconnectAttempts != nil {
		cfg.ReconnectAttempts = *fc.ReconnectAttempts
	}
	setDuration(&cfg.ReconnectBaseDelay, fc.ReconnectBaseDelay)
	setDuration(&cfg.ReconnectMaxDelay, fc.ReconnectMaxDelay)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.ExportDir, fc.ExportDir)
	setString(&cfg.ExportBucket, fc.ExportBucket)
	setString(&cfg.ExportPrefix, fc.ExportPrefix)
	setString(&cfg.ExportRegion, fc.ExportRegion)
	setString(&cfg.ExportEndpoint, fc.ExportEndpoint)
	setString(&cfg.ExportAccessKey, fc.ExportAccessKey)
	setString(&cfg.ExportSecretKey, fc.ExportSecretKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
