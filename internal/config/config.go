// Package config provides configuration structures and loading for godelegate.
package config

import (
	"sort"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Chains     map[string]ChainConfig `yaml:"chains" mapstructure:"chains"`
	Roots      []RootConfig           `yaml:"roots" mapstructure:"roots"`
	Indexer    IndexerConfig          `yaml:"indexer" mapstructure:"indexer"`
	Identity   IdentityConfig         `yaml:"identity" mapstructure:"identity"`
	Store      StoreConfig            `yaml:"store" mapstructure:"store"`
	Processing ProcessingConfig       `yaml:"processing" mapstructure:"processing"`
	Watch      WatchConfig            `yaml:"watch" mapstructure:"watch"`
	Logging    LoggingConfig          `yaml:"logging" mapstructure:"logging"`
}

// ChainConfig holds the static capability flags of one chain.
type ChainConfig struct {
	AddressPrefix     uint16 `yaml:"address_prefix" mapstructure:"address_prefix"`
	Proxy             bool   `yaml:"proxy" mapstructure:"proxy"`
	Multisig          bool   `yaml:"multisig" mapstructure:"multisig"`
	UniversalMultisig bool   `yaml:"universal_multisig" mapstructure:"universal_multisig"`
}

// SupportsDiscovery reports whether the chain has at least one discovery mechanism.
func (c ChainConfig) SupportsDiscovery() bool {
	return c.Proxy || c.Multisig
}

// RootConfig is one key the user holds. Account is 0x-hex or an SS58 address.
// An empty Chains list means every configured chain.
type RootConfig struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Account string   `yaml:"account" mapstructure:"account"`
	Chains  []string `yaml:"chains" mapstructure:"chains"`
}

// IndexerConfig points at the remote proxy, multisig and identity endpoints.
type IndexerConfig struct {
	ProxyURL       string `yaml:"proxy_url" mapstructure:"proxy_url"`
	MultisigURL    string `yaml:"multisig_url" mapstructure:"multisig_url"`
	IdentityURL    string `yaml:"identity_url" mapstructure:"identity_url"` // optional
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	PageSize       int    `yaml:"page_size" mapstructure:"page_size"`
}

// Timeout returns the per-request timeout.
func (c IndexerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IdentityConfig holds display names known without a remote lookup.
type IdentityConfig struct {
	Names map[string]string `yaml:"names" mapstructure:"names"` // account -> display name
}

// StoreConfig selects and configures the wallet store.
type StoreConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"` // mysql or bolt
	Path     string         `yaml:"path" mapstructure:"path"`     // bolt file
	Table    string         `yaml:"table" mapstructure:"table"`   // mysql table
	Database DatabaseConfig `yaml:",inline" mapstructure:",squash"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ProcessingConfig bounds concurrency and remote query size.
type ProcessingConfig struct {
	Workers        int `yaml:"workers" mapstructure:"workers"`
	QueryBatchSize int `yaml:"query_batch_size" mapstructure:"query_batch_size"`
	// RevokeMissing marks wallets that disappeared as revoked instead of
	// deleting them; ack removes them afterwards.
	RevokeMissing bool `yaml:"revoke_missing" mapstructure:"revoke_missing"`
}

// WatchConfig holds defaults for the periodic sync loop.
type WatchConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds" mapstructure:"interval_seconds"`
	MetricsAddr     string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// Interval returns the sync period.
func (c WatchConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Indexer: IndexerConfig{
			TimeoutSeconds: 15,
			PageSize:       500,
		},
		Store: StoreConfig{
			Driver: "bolt",
			Path:   "wallets.db",
			Table:  "delegated_wallet",
			Database: DatabaseConfig{
				Port:               3306,
				TLS:                "preferred",
				MaxConnections:     10,
				MaxIdleConnections: 5,
			},
		},
		Processing: ProcessingConfig{
			Workers:        4,
			QueryBatchSize: 100,
		},
		Watch: WatchConfig{
			IntervalSeconds: 300,
			MetricsAddr:     ":9102",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// ChainIDs returns the configured chain ids, sorted.
func (c *Config) ChainIDs() []string {
	ids := make([]string, 0, len(c.Chains))
	for id := range c.Chains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, workers, queryBatchSize int) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if workers > 0 {
		c.Processing.Workers = workers
	}
	if queryBatchSize > 0 {
		c.Processing.QueryBatchSize = queryBatchSize
	}
}
