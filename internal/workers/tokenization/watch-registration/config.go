package watchregistration

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`

	// Receiver is the consumer contract the report is addressed to.
	Receiver common.Address
	GasLimit uint64
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       120 * time.Second,
		GasLimit:      500000,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Receiver == (common.Address{}) {
		return fmt.Errorf("receiver address is required")
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("gas_limit must be positive")
	}
	return nil
}
