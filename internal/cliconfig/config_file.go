package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	SiteID        string  `toml:"site"`
	ClientCode    string  `toml:"client_code"`
	Secret        string  `toml:"secret"`
	ContractCode  string  `toml:"contract_code"`
	Endpoint      string  `toml:"endpoint"`
	LedgerDir     string  `toml:"ledger_dir"`
	HTTPTimeout   string  `toml:"http_timeout"`
	RetryAttempts int     `toml:"retry_attempts"`
	RetryDelay    string  `toml:"retry_delay"`
	RetryMaxDelay string  `toml:"retry_max_delay"`
	MaxBatch      int     `toml:"max_batch"`
	Profile       string  `toml:"profile"`
	Packages      int     `toml:"packages"`
	Weight        float64 `toml:"weight"`
	Labels        *bool   `toml:"labels"`
	CloseDay      *bool   `toml:"close_day"`
	SkipUploaded  *bool   `toml:"skip_uploaded"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path,
// ~/.parcelship/config.toml, when the home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".parcelship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("site", fc.SiteID, &cfg.SiteID)
	s.setString("client-code", fc.ClientCode, &cfg.ClientCode)
	s.setString("secret", fc.Secret, &cfg.Secret)
	s.setString("contract-code", fc.ContractCode, &cfg.ContractCode)
	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("ledger-dir", fc.LedgerDir, &cfg.LedgerDir)
	s.setString("profile", fc.Profile, &cfg.Profile)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay); err != nil {
		return err
	}

	s.setInt("retry-attempts", fc.RetryAttempts, &cfg.RetryAttempts)
	s.setInt("max-batch", fc.MaxBatch, &cfg.MaxBatch)
	s.setInt("packages", fc.Packages, &cfg.Packages)
	s.setFloat("weight", fc.Weight, &cfg.Weight)

	s.setBool("labels", fc.Labels, &cfg.Labels)
	s.setBool("close-day", fc.CloseDay, &cfg.CloseDay)
	s.setBool("skip-uploaded", fc.SkipUploaded, &cfg.SkipUploaded)

	return nil
}
