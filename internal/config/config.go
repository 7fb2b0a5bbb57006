package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config stores runtime configuration for the api, mcp and importer processes.
type Config struct {
	AppEnv                      string
	ServiceName                 string
	ServiceVersion              string
	HTTPAddr                    string
	ReadTimeout                 time.Duration
	WriteTimeout                time.Duration
	LogLevel                    logging.Level
	LogFormat                   string
	CORSAllowedOrigins          []string
	SwaggerEnabled              bool
	InternalToken               string
	StoreDriver                 string
	DBURL                       string
	DBDisablePreparedBinary     bool
	DBMaxOpenConns              int
	SQLitePath                  string
	CacheEnabled                bool
	CacheTTL                    time.Duration
	SnapshotRefreshInterval     time.Duration
	MCPAddr                     string
	MCPPath                     string
	MCPAPIKey                   string
	FPLAPIBaseURL               string
	FPLAPIUserAgent             string
	FPLAPITimeout               time.Duration
	FPLAPIMaxRetries            int
	FPLAPIRetryBackoff          time.Duration
	FPLAPICircuitEnabled        bool
	FPLAPICircuitFailureCount   int
	FPLAPICircuitOpenTimeout    time.Duration
	FPLAPICircuitHalfOpenMaxReq int
	ImportWorkers               int
	UptraceEnabled              bool
	UptraceDSN                  string
	UptraceLogsEnabled          bool
	PyroscopeEnabled            bool
	PyroscopeServerAddress      string
	PyroscopeAppName            string
	PyroscopeAuthToken          string
	PyroscopeBasicAuthUser      string
	PyroscopeBasicAuthPassword  string
	PyroscopeUploadRate         time.Duration
	PprofEnabled                bool
	PprofAddr                   string
	Engine                      engine.Config
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}
	swaggerEnabled, err := getEnvAsBool("SWAGGER_ENABLED", swaggerDefault)
	if err != nil {
		return Config{}, err
	}

	logLevel, err := logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_LOG_LEVEL: %w", err)
	}
	logFormatDefault := logging.FormatJSON
	if appEnv == EnvDev {
		logFormatDefault = logging.FormatConsole
	}
	logFormat, err := logging.ParseFormat(getEnv("APP_LOG_FORMAT", logFormatDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_LOG_FORMAT: %w", err)
	}
	readTimeout, err := getEnvAsDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsDuration("APP_WRITE_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}

	storeDriver, err := parseStoreDriver(getEnv("STORE_DRIVER", StoreMemory))
	if err != nil {
		return Config{}, err
	}
	if storeDriver == StorePostgres && strings.TrimSpace(os.Getenv("DB_URL")) == "" {
		return Config{}, fmt.Errorf("DB_URL is required when STORE_DRIVER=%s", StorePostgres)
	}
	dbDisablePreparedBinary, err := getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", "true")
	if err != nil {
		return Config{}, err
	}
	dbMaxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if dbMaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}

	cacheEnabled, err := getEnvAsBool("CACHE_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := getEnvAsDuration("CACHE_TTL", "60s")
	if err != nil {
		return Config{}, err
	}

	// Zero disables the periodic rebuild; the internal refresh route still works.
	snapshotRefreshInterval, err := time.ParseDuration(getEnv("SNAPSHOT_REFRESH_INTERVAL", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SNAPSHOT_REFRESH_INTERVAL: %w", err)
	}
	if snapshotRefreshInterval < 0 {
		return Config{}, fmt.Errorf("SNAPSHOT_REFRESH_INTERVAL must be >= 0")
	}

	mcpPath := strings.TrimSpace(getEnv("MCP_PATH", "/mcp"))
	if !strings.HasPrefix(mcpPath, "/") {
		return Config{}, fmt.Errorf("MCP_PATH must start with /")
	}

	fplTimeout, err := getEnvAsDuration("FPL_API_TIMEOUT", "20s")
	if err != nil {
		return Config{}, err
	}
	fplMaxRetries, err := getEnvAsInt("FPL_API_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_API_MAX_RETRIES: %w", err)
	}
	if fplMaxRetries < 0 {
		return Config{}, fmt.Errorf("FPL_API_MAX_RETRIES must be >= 0")
	}
	fplRetryBackoff, err := getEnvAsDuration("FPL_API_RETRY_BACKOFF", "1s")
	if err != nil {
		return Config{}, err
	}
	fplCircuitEnabled, err := getEnvAsBool("FPL_API_CIRCUIT_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	fplCircuitFailureCount, err := getEnvAsInt("FPL_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if fplCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("FPL_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	fplCircuitOpenTimeout, err := getEnvAsDuration("FPL_API_CIRCUIT_OPEN_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}
	fplCircuitHalfOpenMaxReq, err := getEnvAsInt("FPL_API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if fplCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("FPL_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	importWorkers, err := getEnvAsInt("IMPORT_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse IMPORT_WORKERS: %w", err)
	}
	if importWorkers < 1 {
		return Config{}, fmt.Errorf("IMPORT_WORKERS must be >= 1")
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := getEnvAsBool("UPTRACE_LOGS_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}

	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := getEnvAsBool("PPROF_ENABLED", "false")
	if err != nil {
		return Config{}, err
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))

	engineCfg, err := loadEngine()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 strings.TrimSpace(getEnv("APP_SERVICE_NAME", "fpl-predictor-api")),
		ServiceVersion:              strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                 readTimeout,
		WriteTimeout:                writeTimeout,
		LogLevel:                    logLevel,
		LogFormat:                   logFormat,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:              swaggerEnabled,
		InternalToken:               strings.TrimSpace(getEnv("INTERNAL_TOKEN", "")),
		StoreDriver:                 storeDriver,
		DBURL:                       strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary:     dbDisablePreparedBinary,
		DBMaxOpenConns:              dbMaxOpenConns,
		SQLitePath:                  strings.TrimSpace(getEnv("SQLITE_PATH", "./data/fpl.db")),
		CacheEnabled:                cacheEnabled,
		CacheTTL:                    cacheTTL,
		SnapshotRefreshInterval:     snapshotRefreshInterval,
		MCPAddr:                     getEnv("MCP_ADDR", ":8090"),
		MCPPath:                     mcpPath,
		MCPAPIKey:                   strings.TrimSpace(getEnv("MCP_API_KEY", "")),
		FPLAPIBaseURL:               strings.TrimSpace(getEnv("FPL_API_BASE_URL", "https://fantasy.premierleague.com/api")),
		FPLAPIUserAgent:             strings.TrimSpace(getEnv("FPL_API_USER_AGENT", "")),
		FPLAPITimeout:               fplTimeout,
		FPLAPIMaxRetries:            fplMaxRetries,
		FPLAPIRetryBackoff:          fplRetryBackoff,
		FPLAPICircuitEnabled:        fplCircuitEnabled,
		FPLAPICircuitFailureCount:   fplCircuitFailureCount,
		FPLAPICircuitOpenTimeout:    fplCircuitOpenTimeout,
		FPLAPICircuitHalfOpenMaxReq: fplCircuitHalfOpenMaxReq,
		ImportWorkers:               importWorkers,
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		UptraceLogsEnabled:          uptraceLogsEnabled,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
		Engine:                      engineCfg,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.StoreDriver == StoreSQLite && cfg.SQLitePath == "" {
		return Config{}, fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", StoreSQLite)
	}

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseStoreDriver(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case StoreMemory, StorePostgres, StoreSQLite:
		return value, nil
	default:
		return "", fmt.Errorf("invalid STORE_DRIVER %q: valid values are %s, %s, %s", v, StoreMemory, StorePostgres, StoreSQLite)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.ParseFloat(value, 64)
}

func getEnvAsBool(key, fallback string) (bool, error) {
	out, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

// getEnvAsDuration rejects zero and negative durations.
func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}

	return ""
}
