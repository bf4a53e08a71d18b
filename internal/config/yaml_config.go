package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"querydesk/internal/routing"
)

// YAMLConfig represents the structure of the config.yaml file.
type YAMLConfig struct {
	Routing *RoutingConfig `yaml:"routing"`
}

// RoutingConfig tunes query classification and assignment.
type RoutingConfig struct {
	// Score a subject must strictly exceed to be chosen
	Threshold float64 `yaml:"threshold"`
	// Keywords kept per uploaded document
	KeywordLimit int `yaml:"keyword_limit"`
	// Semester = multiplier * (base_year - joining_year)
	Semester SemesterConfig `yaml:"semester"`
	// Document kinds accepted for upload
	UploadKinds []string `yaml:"upload_kinds"`
}

// SemesterConfig is the semester derivation rule.
type SemesterConfig struct {
	BaseYear   int `yaml:"base_year"`
	Multiplier int `yaml:"multiplier"`
}

// DefaultRouting returns the routing policy used when no YAML file overrides it.
func DefaultRouting() RoutingConfig {
	return RoutingConfig{
		Threshold:    0.1,
		KeywordLimit: 30,
		Semester:     SemesterConfig{BaseYear: 25, Multiplier: 2},
		UploadKinds:  []string{"pdf", "docx", "pptx", "txt"},
	}
}

// Policy converts the configuration into the router's parameters.
func (r RoutingConfig) Policy() routing.Policy {
	return routing.Policy{
		Threshold:    r.Threshold,
		KeywordLimit: r.KeywordLimit,
		Semester: routing.SemesterPolicy{
			BaseYear:   r.Semester.BaseYear,
			Multiplier: r.Semester.Multiplier,
		},
	}
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	path := getEnv("CONFIG_FILE", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyYAML overlays the routing section of y onto c. Zero values keep the defaults.
func (c *Config) ApplyYAML(y *YAMLConfig) error {
	if y == nil || y.Routing == nil {
		return nil
	}
	r := y.Routing
	if r.Threshold < 0 {
		return fmt.Errorf("routing.threshold must not be negative, got %v", r.Threshold)
	}
	if r.KeywordLimit < 0 {
		return fmt.Errorf("routing.keyword_limit must not be negative, got %d", r.KeywordLimit)
	}

	if r.Threshold > 0 {
		c.Routing.Threshold = r.Threshold
	}
	if r.KeywordLimit > 0 {
		c.Routing.KeywordLimit = r.KeywordLimit
	}
	if r.Semester.BaseYear != 0 {
		c.Routing.Semester.BaseYear = r.Semester.BaseYear
	}
	if r.Semester.Multiplier != 0 {
		c.Routing.Semester.Multiplier = r.Semester.Multiplier
	}
	if len(r.UploadKinds) > 0 {
		c.Routing.UploadKinds = r.UploadKinds
	}
	return nil
}
