package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Chains = map[string]ChainConfig{
		"polkadot": {AddressPrefix: 0, Proxy: true, Multisig: true, UniversalMultisig: true},
		"kusama":   {AddressPrefix: 2, Proxy: true, Multisig: true, UniversalMultisig: true},
	}
	cfg.Roots = []RootConfig{{Name: "alice", Account: aliceHex}}
	cfg.Indexer.ProxyURL = "https://indexer.example/proxies"
	cfg.Indexer.MultisigURL = "https://indexer.example/multisigs"
	return cfg
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
	}
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	return fields
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no chains", func(c *Config) { c.Chains = nil }, "chains"},
		{"prefix too large", func(c *Config) {
			c.Chains["polkadot"] = ChainConfig{AddressPrefix: 20000, Proxy: true}
		}, "chains.polkadot.address_prefix"},
		{"universal without multisig", func(c *Config) {
			c.Chains["polkadot"] = ChainConfig{Proxy: true, UniversalMultisig: true}
		}, "chains.polkadot.universal_multisig"},
		{"no roots", func(c *Config) { c.Roots = nil }, "roots"},
		{"bad root account", func(c *Config) { c.Roots[0].Account = "0x1234" }, "roots[0].account"},
		{"root on unknown chain", func(c *Config) { c.Roots[0].Chains = []string{"rococo"} }, "roots[0].chains"},
		{"missing proxy url", func(c *Config) { c.Indexer.ProxyURL = "" }, "indexer.proxy_url"},
		{"relative multisig url", func(c *Config) { c.Indexer.MultisigURL = "/multisigs" }, "indexer.multisig_url"},
		{"bad identity url", func(c *Config) { c.Indexer.IdentityURL = "ftp://x" }, "indexer.identity_url"},
		{"zero timeout", func(c *Config) { c.Indexer.TimeoutSeconds = 0 }, "indexer.timeout_seconds"},
		{"bad identity key", func(c *Config) { c.Identity.Names = map[string]string{"nope": "x"} }, "identity.names"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"bolt without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"mysql without host", func(c *Config) {
			c.Store.Driver = "mysql"
			c.Store.Database.User = "u"
			c.Store.Database.Database = "d"
		}, "store.host"},
		{"mysql bad table", func(c *Config) {
			c.Store.Driver = "mysql"
			c.Store.Database = DatabaseConfig{Host: "h", Port: 3306, User: "u", Database: "d"}
			c.Store.Table = "bad table"
		}, "store.table"},
		{"zero workers", func(c *Config) { c.Processing.Workers = 0 }, "processing.workers"},
		{"zero batch", func(c *Config) { c.Processing.QueryBatchSize = 0 }, "processing.query_batch_size"},
		{"negative interval", func(c *Config) { c.Watch.IntervalSeconds = -1 }, "watch.interval_seconds"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			found := false
			for _, f := range fieldsOf(t, err) {
				if f == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestProxyURLOptionalWithoutProxyChains(t *testing.T) {
	cfg := validConfig()
	cfg.Chains = map[string]ChainConfig{"astar": {Multisig: true}}
	cfg.Indexer.ProxyURL = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected proxy url to be optional, got %v", err)
	}
}

func TestMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Roots = nil
	cfg.Processing.Workers = -1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if len(fieldsOf(t, err)) != 3 {
		t.Errorf("Expected 3 errors, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "validation failed:") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
