package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "DOME_"

// parseEnv overlays cfg with DOME_* variables. Malformed numbers and
// durations panic.
func parseEnv(cfg *Config) {
	envString(&cfg.ServerURL, "SERVER_URL")
	envString(&cfg.APIPrefix, "API_PREFIX")
	envDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	if v, ok := lookup("REQUESTS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(fmt.Errorf("%sREQUESTS_PER_SECOND: %w", envPrefix, err))
		}
		cfg.RequestsPerSecond = f
	}
	envString(&cfg.DatabasePath, "DATABASE_PATH")
	envString(&cfg.Language, "LANGUAGE")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	if v, ok := lookup("RECONNECT_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%sRECONNECT_ATTEMPTS: %w", envPrefix, err))
		}
		cfg.ReconnectAttempts = n
	}
	envDuration(&cfg.ReconnectBaseDelay, "RECONNECT_BASE_DELAY")
	envDuration(&cfg.ReconnectMaxDelay, "RECONNECT_MAX_DELAY")
	envString(&cfg.MetricsAddr, "METRICS_ADDR")
	envString(&cfg.ExportDir, "EXPORT_DIR")
	envString(&cfg.ExportBucket, "EXPORT_BUCKET")
	envString(&cfg.ExportPrefix, "EXPORT_PREFIX")
	envString(&cfg.ExportRegion, "EXPORT_REGION")
	envString(&cfg.ExportEndpoint, "EXPORT_ENDPOINT")
	envString(&cfg.ExportAccessKey, "EXPORT_ACCESS_KEY")
	envString(&cfg.ExportSecretKey, "EXPORT_SECRET_KEY")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
	}
	*dst = d
}
