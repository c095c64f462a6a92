// Package config handles loading and validating coupon system configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with COUPONSYS_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The JWT secret and admin password should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Pool.Size)
package config
