// Package cliconfig loads parcelship CLI configuration from flags,
// environment variables and a TOML file, with flag > env > file > default
// precedence.
package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bdalabs/parcelship/internal/domain"
	"github.com/bdalabs/parcelship/internal/gls"
)

// Config holds CLI configuration for parcelship.
type Config struct {
	SiteID       string
	ClientCode   string
	Secret       string
	ContractCode string

	Endpoint string

	// LedgerDir overrides the ledger location; empty means the directory of
	// the source file being processed.
	LedgerDir string

	HTTPTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
	MaxBatch      int

	Profile  string
	Packages int
	Weight   float64

	Labels       bool
	CloseDay     bool
	SkipUploaded bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Endpoint:      gls.DefaultEndpoint,
		HTTPTimeout:   60 * time.Second,
		RetryAttempts: gls.DefaultRetryAttempts,
		RetryDelay:    gls.DefaultRetryDelay,
		RetryMaxDelay: gls.DefaultRetryMaxDelay,
		MaxBatch:      gls.DefaultMaxParcelsPerBatch,
		Profile:       string(domain.ProfileSingle),
		SkipUploaded:  true,
	}
}

// Credentials assembles the GLS credentials from the config.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		SiteID:       c.SiteID,
		ClientCode:   c.ClientCode,
		Secret:       c.Secret,
		ContractCode: c.ContractCode,
	}
}

// Defaults resolves the parcel defaults from the profile and any explicit
// overrides. ProfileCustom requires both overrides to be set.
func (c *Config) Defaults() (domain.ParcelDefaults, error) {
	d, ok := domain.Profile(c.Profile).Defaults()
	if !ok && c.Profile != string(domain.ProfileCustom) {
		return domain.ParcelDefaults{}, fmt.Errorf("unknown profile %q", c.Profile)
	}
	if c.Packages > 0 {
		d.Packages = c.Packages
	}
	if c.Weight > 0 {
		d.Weight = c.Weight
	}
	if d.Packages <= 0 || d.Weight <= 0 {
		return domain.ParcelDefaults{}, fmt.Errorf("profile %q needs explicit --packages and --weight", c.Profile)
	}
	return d, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !c.Credentials().Valid() {
		return fmt.Errorf("site, client-code, secret and contract-code are all required")
	}
	if c.Endpoint == "" {
		c.Endpoint = gls.DefaultEndpoint
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive")
	}
	if c.MaxBatch <= 0 {
		return fmt.Errorf("max batch must be positive")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	if b, err := strconv.ParseBool(value); err == nil {
		*dst = b
	}
}

// FileExists reports whether the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
