// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// WorkerName is the key of the registration job worker under workers.
const WorkerName = "watch-registration"

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)
	cfg.Attestation.SignerKeys = normalizeSignerKeys(cfg.Attestation.SignerKeys)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// normalizeSignerKeys splits comma-joined entries, trims whitespace and drops
// empty keys. ATTESTATION_SIGNER_KEYS reaches the struct either through
// AutomaticEnv or overrideEmptyConfig, so both paths end up here.
func normalizeSignerKeys(keys []string) []string {
	var out []string
	for _, entry := range keys {
		for _, key := range strings.Split(entry, ",") {
			if key = strings.TrimSpace(key); key != "" {
				out = append(out, key)
			}
		}
	}
	return out
}

// overrideEmptyConfig fills secrets that are commonly supplied only through
// the environment.
func overrideEmptyConfig(cfg *Config) {
	if len(cfg.Attestation.SignerKeys) == 0 {
		if val := os.Getenv("ATTESTATION_SIGNER_KEYS"); val != "" {
			cfg.Attestation.SignerKeys = []string{val}
		}
	}

	if len(cfg.Workflow.EVMs) > 0 {
		primary := &cfg.Workflow.EVMs[0]
		if primary.TransmitterKey == "" {
			primary.TransmitterKey = os.Getenv("EVM_TRANSMITTER_KEY")
		}
		if primary.RPCURL == "" {
			primary.RPCURL = os.Getenv("EVM_RPC_URL")
		}
	}

	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "watch-registration"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 120000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	for i := range cfg.Workflow.EVMs {
		evm := &cfg.Workflow.EVMs[i]
		if evm.ReceiptTimeout == 0 {
			evm.ReceiptTimeout = 90000
		}
		if evm.PollInterval == 0 {
			evm.PollInterval = 2000
		}
		if evm.RPCTimeout == 0 {
			evm.RPCTimeout = 15000
		}
	}

	if cfg.Attestation.Mode == "" {
		cfg.Attestation.Mode = "local"
	}
	if cfg.Attestation.Quorum == 0 {
		cfg.Attestation.Quorum = 1
	}

	if cfg.Appraisal.Source == "" {
		cfg.Appraisal.Source = "reference"
	}
	if cfg.Appraisal.CacheTTL == 0 {
		cfg.Appraisal.CacheTTL = 300000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Trigger.HTTP.Address == "" {
		cfg.Trigger.HTTP.Address = ":8081"
	}
	if cfg.Trigger.HTTP.ReadTimeout == 0 {
		cfg.Trigger.HTTP.ReadTimeout = 10000
	}
	if cfg.Trigger.HTTP.WriteTimeout == 0 {
		cfg.Trigger.HTTP.WriteTimeout = 180000
	}
	if cfg.Trigger.HTTP.MaxBodyBytes == 0 {
		cfg.Trigger.HTTP.MaxBodyBytes = 64 << 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.MetricsAddress == "" {
		cfg.Observability.MetricsAddress = ":8080"
	}

	if cfg.Workers == nil {
		cfg.Workers = make(map[string]WorkerConfig)
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = cfg.Camunda.MaxJobsActive
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Camunda.Timeout
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	primary, err := cfg.PrimaryEVM()
	if err != nil {
		return err
	}
	if primary.ChainSelectorName == "" {
		return fmt.Errorf("workflow.evms[0].chain_selector_name is required")
	}
	if !common.IsHexAddress(primary.ConsumerAddress) {
		return fmt.Errorf("workflow.evms[0].consumer_address %q is not a hex address", primary.ConsumerAddress)
	}
	if primary.LuxuryWatchAddress != "" && !common.IsHexAddress(primary.LuxuryWatchAddress) {
		return fmt.Errorf("workflow.evms[0].luxury_watch_address %q is not a hex address", primary.LuxuryWatchAddress)
	}
	if primary.ForwarderAddress != "" && !common.IsHexAddress(primary.ForwarderAddress) {
		return fmt.Errorf("workflow.evms[0].forwarder_address %q is not a hex address", primary.ForwarderAddress)
	}
	if _, err := primary.ParseGasLimit(); err != nil {
		return fmt.Errorf("workflow.evms[0]: %w", err)
	}

	switch cfg.Attestation.Mode {
	case "local":
		if cfg.Attestation.Quorum < 1 {
			return fmt.Errorf("attestation.quorum must be positive")
		}
		if n := len(cfg.Attestation.SignerKeys); n > 0 && cfg.Attestation.Quorum > n {
			return fmt.Errorf("attestation.quorum %d exceeds %d signer keys", cfg.Attestation.Quorum, n)
		}
	default:
		return fmt.Errorf("attestation.mode %q is not supported", cfg.Attestation.Mode)
	}

	switch cfg.Appraisal.Source {
	case "reference":
	case "registry":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for appraisal.source=registry")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for appraisal.source=registry")
		}
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for appraisal.source=registry")
		}
	default:
		return fmt.Errorf("appraisal.source %q is not supported", cfg.Appraisal.Source)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda.enabled is true")
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to
// the camunda defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       cfg.Camunda.Timeout,
	}
}
