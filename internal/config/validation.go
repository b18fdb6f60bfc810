package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dbsmedya/godelegate/internal/sqlutil"
	"github.com/dbsmedya/godelegate/internal/ss58"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateChains()...)
	errors = append(errors, c.validateRoots()...)
	errors = append(errors, c.validateIndexer()...)
	errors = append(errors, c.validateIdentity()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateChains() ValidationErrors {
	var errors ValidationErrors

	if len(c.Chains) == 0 {
		errors = append(errors, ValidationError{
			Field:   "chains",
			Message: "at least one chain must be defined",
		})
	}

	for _, name := range c.ChainIDs() {
		chain := c.Chains[name]
		prefix := "chains." + name

		if chain.AddressPrefix > ss58.MaxPrefix {
			errors = append(errors, ValidationError{
				Field:   prefix + ".address_prefix",
				Message: fmt.Sprintf("address_prefix must be at most %d", ss58.MaxPrefix),
			})
		}
		if chain.UniversalMultisig && !chain.Multisig {
			errors = append(errors, ValidationError{
				Field:   prefix + ".universal_multisig",
				Message: "universal_multisig requires multisig discovery",
			})
		}
	}

	return errors
}

func (c *Config) validateRoots() ValidationErrors {
	var errors ValidationErrors

	if len(c.Roots) == 0 {
		errors = append(errors, ValidationError{
			Field:   "roots",
			Message: "at least one root account must be defined",
		})
	}

	for i, root := range c.Roots {
		prefix := fmt.Sprintf("roots[%d]", i)

		if root.Account == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".account",
				Message: "account is required",
			})
		} else if _, err := ParseAccount(root.Account); err != nil {
			errors = append(errors, ValidationError{
				Field:   prefix + ".account",
				Message: err.Error(),
			})
		}

		for _, chain := range root.Chains {
			if _, ok := c.Chains[chain]; !ok {
				errors = append(errors, ValidationError{
					Field:   prefix + ".chains",
					Message: fmt.Sprintf("chain %q is not configured", chain),
				})
			}
		}
	}

	return errors
}

func (c *Config) validateIndexer() ValidationErrors {
	var errors ValidationErrors

	needProxy, needMultisig := false, false
	for _, chain := range c.Chains {
		needProxy = needProxy || chain.Proxy
		needMultisig = needMultisig || chain.Multisig
	}

	checkURL := func(field, value string, required bool) {
		if value == "" {
			if required {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "url is required by the configured chains",
				})
			}
			return
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "must be an absolute http(s) url",
			})
		}
	}

	checkURL("indexer.proxy_url", c.Indexer.ProxyURL, needProxy)
	checkURL("indexer.multisig_url", c.Indexer.MultisigURL, needMultisig)
	checkURL("indexer.identity_url", c.Indexer.IdentityURL, false)

	if c.Indexer.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "indexer.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}
	if c.Indexer.PageSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "indexer.page_size",
			Message: "page_size must be positive",
		})
	}

	return errors
}

func (c *Config) validateIdentity() ValidationErrors {
	var errors ValidationErrors

	for account := range c.Identity.Names {
		if _, err := ParseAccount(account); err != nil {
			errors = append(errors, ValidationError{
				Field:   "identity.names",
				Message: err.Error(),
			})
		}
	}

	return errors
}

func (c *Config) validateStore() ValidationErrors {
	var errors ValidationErrors

	switch c.Store.Driver {
	case "bolt":
		if c.Store.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Message: "path is required for the bolt driver",
			})
		}
	case "mysql":
		errors = append(errors, c.validateDatabase("store", &c.Store.Database)...)
		if err := sqlutil.ValidateIdentifier(c.Store.Table); err != nil {
			errors = append(errors, ValidationError{
				Field:   "store.table",
				Message: err.Error(),
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.driver",
			Message: "driver must be 'mysql' or 'bolt'",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 || db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "connection limits cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.Workers <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.workers",
			Message: "workers must be positive",
		})
	}

	if c.Processing.QueryBatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.query_batch_size",
			Message: "query_batch_size must be positive",
		})
	}

	return errors
}

func (c *Config) validateWatch() ValidationErrors {
	if c.Watch.IntervalSeconds < 0 {
		return ValidationErrors{{
			Field:   "watch.interval_seconds",
			Message: "interval_seconds cannot be negative",
		}}
	}
	return nil
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
