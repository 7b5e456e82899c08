// Package config provides YAML configuration parsing for livesync.
//
// This package enables running the livesync CLI against a server without
// writing Go code, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	url: ws://localhost:4000/livesync
//	heartbeat: 30s
//
//	headers:
//	  Authorization: Bearer ${LIVESYNC_TOKEN}
//
//	stores:
//	  - name: messages
//	    key: id
//	    sort:
//	      field: inserted_at
//	      order: asc
//
//	topics:
//	  - room:lobby
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minHeartbeat is the minimum allowed heartbeat interval. This prevents
// accidental flooding of the server with keepalive traffic.
const minHeartbeat = 1 * time.Second

// Config is the root configuration structure for the livesync CLI.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// URL is the websocket endpoint of the realtime server.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Heartbeat is the interval between keepalive frames.
	// Accepts duration strings like "30s", "1m". Defaults to 30s.
	Heartbeat Duration `yaml:"heartbeat"`

	// Headers are HTTP headers sent with the websocket handshake.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Storage is an optional path to a sqlite file for persisted client
	// state. Empty selects in-memory storage.
	Storage string `yaml:"storage"`

	// Stores declares the collections to mirror.
	Stores []StoreConfig `yaml:"stores"`

	// Topics declares the presence topics to track.
	Topics []string `yaml:"topics"`
}

// StoreConfig declares one collection to mirror.
type StoreConfig struct {
	// Name is the collection name the server broadcasts under.
	Name string `yaml:"name"`

	// Key is the item field holding the identity key. Defaults to "id".
	Key string `yaml:"key"`

	// Sort optionally keeps the collection ordered by a field.
	Sort *SortConfig `yaml:"sort"`
}

// SortConfig declares the ordering of a mirrored collection.
type SortConfig struct {
	// Field is the item field to order by.
	Field string `yaml:"field"`

	// Order is "asc" (default) or "desc".
	Order string `yaml:"order"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL and Header values. Defaults
// are applied for Heartbeat (30s) and per-store Key ("id").
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = Duration(30 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	expanded, err := expandEnvVars(c.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	c.URL = expanded

	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme != "ws" && parsedURL.Scheme != "wss" {
		return fmt.Errorf("url scheme must be ws or wss, got %q", parsedURL.Scheme)
	}

	if c.Heartbeat.Duration() < minHeartbeat {
		return fmt.Errorf("heartbeat must be at least %s, got %s", minHeartbeat, c.Heartbeat.Duration())
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	seen := make(map[string]struct{}, len(c.Stores))
	for i := range c.Stores {
		sc := &c.Stores[i]

		if sc.Name == "" {
			return fmt.Errorf("stores[%d]: name is required", i)
		}
		if _, dup := seen[sc.Name]; dup {
			return fmt.Errorf("stores[%d]: duplicate store name %q", i, sc.Name)
		}
		seen[sc.Name] = struct{}{}

		if sc.Key == "" {
			sc.Key = "id"
		}

		if sc.Sort != nil {
			if sc.Sort.Field == "" {
				return fmt.Errorf("stores[%d] (%s): sort field is required", i, sc.Name)
			}
			switch sc.Sort.Order {
			case "":
				sc.Sort.Order = "asc"
			case "asc", "desc":
			default:
				return fmt.Errorf("stores[%d] (%s): sort order must be asc or desc, got %q",
					i, sc.Name, sc.Sort.Order)
			}
		}
	}

	seenTopics := make(map[string]struct{}, len(c.Topics))
	for i, topic := range c.Topics {
		if topic == "" {
			return fmt.Errorf("topics[%d]: topic cannot be empty", i)
		}
		if _, dup := seenTopics[topic]; dup {
			return fmt.Errorf("topics[%d]: duplicate topic %q", i, topic)
		}
		seenTopics[topic] = struct{}{}
	}

	if len(c.Stores) == 0 && len(c.Topics) == 0 {
		return errors.New("at least one store or topic must be defined")
	}

	return nil
}
