package detect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for content type detection.
type Config struct {
	// DefaultType is returned when no signature matches.
	DefaultType string `mapstructure:"default_type" default:"application/octet-stream"`
	// MaxPrefix is how many leading bytes are read for detection.
	MaxPrefix int `mapstructure:"max_prefix" default:"512"`
	// RulesFile is an optional YAML file of extra signatures.
	RulesFile string `mapstructure:"rules_file" default:""`
}

type rulesFile struct {
	Rules []struct {
		MediaType string `yaml:"media_type"`
		Offset    int    `yaml:"offset"`
		Pattern   string `yaml:"pattern"`
	} `yaml:"rules"`
}

// LoadRules reads extra signatures from a YAML file:
//
//	rules:
//	  - media_type: application/x-custom
//	    offset: 0
//	    pattern: '"CUST" 00 ?? 01'
//
// Rule indices in a ConfigError count from the first rule of the file.
func LoadRules(path string) ([]Rule, error) {
	return loadRules(path, 0)
}

func loadRules(path string, base int) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return parseRules(data, base)
}

// parseRules numbers rules from base so errors line up with the merged table.
func parseRules(data []byte, base int) ([]Rule, error) {
	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		p, err := ParsePattern(r.Pattern)
		if err != nil {
			return nil, &ConfigError{Rule: base + i, MediaType: r.MediaType, Reason: err.Error()}
		}
		rules = append(rules, Rule{MediaType: r.MediaType, Offset: r.Offset, Pattern: p})
	}
	return rules, nil
}

// NewFromConfig builds a Matcher from the default table plus the rules in
// cfg.RulesFile. Extra rules cannot silently redefine a built-in signature.
// Every ConfigError indexes the merged table, defaults first.
func NewFromConfig(cfg Config) (*Matcher, error) {
	rules := DefaultRules()
	if cfg.RulesFile != "" {
		extra, err := loadRules(cfg.RulesFile, len(rules))
		if err != nil {
			return nil, err
		}
		rules = append(rules, extra...)
	}

	defaultType := cfg.DefaultType
	if defaultType == "" {
		defaultType = DefaultType
	}
	maxPrefix := cfg.MaxPrefix
	if maxPrefix == 0 {
		maxPrefix = DefaultMaxPrefix
	}
	return New(rules, defaultType, maxPrefix)
}
