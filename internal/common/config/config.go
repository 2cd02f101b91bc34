// internal/common/config/config.go
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workflow      WorkflowConfig          `mapstructure:"workflow"`
	Attestation   AttestationConfig       `mapstructure:"attestation"`
	Appraisal     AppraisalConfig         `mapstructure:"appraisal"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Trigger       TriggerConfig           `mapstructure:"trigger"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// --- Workflow ---

// WorkflowConfig lists the target chains. Only the first entry is used.
type WorkflowConfig struct {
	EVMs []EVMConfig `mapstructure:"evms"`
}

// EVMConfig describes one target chain.
type EVMConfig struct {
	LuxuryWatchAddress string `mapstructure:"luxury_watch_address"`
	ConsumerAddress    string `mapstructure:"consumer_address"`
	ChainSelectorName  string `mapstructure:"chain_selector_name"`
	GasLimit           string `mapstructure:"gas_limit"`
	IsTestnet          bool   `mapstructure:"is_testnet"`
	RPCURL             string `mapstructure:"rpc_url"`
	ForwarderAddress   string `mapstructure:"forwarder_address"`
	TransmitterKey     string `mapstructure:"transmitter_key"`
	ReceiptTimeout     int    `mapstructure:"receipt_timeout"` // milliseconds
	PollInterval       int    `mapstructure:"poll_interval"`   // milliseconds
	RPCTimeout         int    `mapstructure:"rpc_timeout"`     // milliseconds
}

// ParseGasLimit returns the gas limit as an unsigned integer.
func (e EVMConfig) ParseGasLimit() (uint64, error) {
	limit, err := strconv.ParseUint(strings.TrimSpace(e.GasLimit), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("gas_limit %q is not an unsigned integer: %w", e.GasLimit, err)
	}
	if limit == 0 {
		return 0, fmt.Errorf("gas_limit must be positive")
	}
	return limit, nil
}

// PrimaryEVM returns the first configured chain entry.
func (c *Config) PrimaryEVM() (EVMConfig, error) {
	if len(c.Workflow.EVMs) == 0 {
		return EVMConfig{}, fmt.Errorf("workflow.evms must contain at least one entry")
	}
	return c.Workflow.EVMs[0], nil
}

// AttestationConfig configures the local quorum signer.
type AttestationConfig struct {
	Mode         string   `mapstructure:"mode"` // local
	SignerKeys   []string `mapstructure:"signer_keys"`
	Quorum       int      `mapstructure:"quorum"`
	ConfigDigest string   `mapstructure:"config_digest"`
}

// AppraisalConfig selects the authenticity validator.
type AppraisalConfig struct {
	Source   string `mapstructure:"source"`    // reference | registry
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TriggerConfig holds the inbound trigger bindings.
type TriggerConfig struct {
	HTTP HTTPTriggerConfig `mapstructure:"http"`
}

type HTTPTriggerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for registration outcome notifications.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds metrics and tracing settings.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsAddress string `mapstructure:"metrics_address"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}
