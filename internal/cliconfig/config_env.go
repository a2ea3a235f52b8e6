package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (PARCELSHIP_*). It respects flags that have been explicitly set (changed
// map). Returns an error if any variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("site", os.Getenv("PARCELSHIP_SITE"), &cfg.SiteID)
	s.setString("client-code", os.Getenv("PARCELSHIP_CLIENT_CODE"), &cfg.ClientCode)
	s.setString("secret", os.Getenv("PARCELSHIP_SECRET"), &cfg.Secret)
	s.setString("contract-code", os.Getenv("PARCELSHIP_CONTRACT_CODE"), &cfg.ContractCode)
	s.setString("endpoint", os.Getenv("PARCELSHIP_ENDPOINT"), &cfg.Endpoint)
	s.setString("ledger-dir", os.Getenv("PARCELSHIP_LEDGER_DIR"), &cfg.LedgerDir)
	s.setString("profile", os.Getenv("PARCELSHIP_PROFILE"), &cfg.Profile)

	if err := s.setDuration("timeout", os.Getenv("PARCELSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", os.Getenv("PARCELSHIP_RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", os.Getenv("PARCELSHIP_RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}

	if err := s.setIntFromString("retry-attempts", os.Getenv("PARCELSHIP_RETRY_ATTEMPTS"), &cfg.RetryAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch", os.Getenv("PARCELSHIP_MAX_BATCH"), &cfg.MaxBatch); err != nil {
		return err
	}
	if err := s.setIntFromString("packages", os.Getenv("PARCELSHIP_PACKAGES"), &cfg.Packages); err != nil {
		return err
	}
	if err := s.setFloatFromString("weight", os.Getenv("PARCELSHIP_WEIGHT"), &cfg.Weight); err != nil {
		return err
	}

	s.setBoolFromString("labels", os.Getenv("PARCELSHIP_LABELS"), &cfg.Labels)
	s.setBoolFromString("close-day", os.Getenv("PARCELSHIP_CLOSE_DAY"), &cfg.CloseDay)
	s.setBoolFromString("skip-uploaded", os.Getenv("PARCELSHIP_SKIP_UPLOADED"), &cfg.SkipUploaded)

	return nil
}
