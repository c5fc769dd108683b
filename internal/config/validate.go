package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"

	"kvdoc/internal/logging"
	"kvdoc/internal/store/engines"
)

// Transports lists the accepted server.transport values.
var Transports = []string{"stdio", "http"}

// Validate checks the configuration for errors. It returns all problems
// found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Engine != "" && !slices.Contains(engines.Names(), c.Store.Engine) {
		errs = append(errs, fmt.Errorf("store.engine: unknown engine %q (want one of %v)", c.Store.Engine, engines.Names()))
	}
	if c.Store.Capacity < 0 {
		errs = append(errs, fmt.Errorf("store.capacity: must not be negative, got %d", c.Store.Capacity))
	}
	if c.Store.OpenTimeout < 0 {
		errs = append(errs, fmt.Errorf("store.open_timeout: must not be negative, got %s", c.Store.OpenTimeout))
	}

	if !slices.Contains(Transports, c.Server.Transport) {
		errs = append(errs, fmt.Errorf("server.transport: want one of %v, got %q", Transports, c.Server.Transport))
	}
	if c.Server.Transport == "http" || c.Server.Listen != "" {
		if err := validateAddr(c.Server.Listen); err != nil {
			errs = append(errs, fmt.Errorf("server.listen: %w", err))
		}
	}

	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: want text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// validateAddr checks that addr is a valid host:port pair.
func validateAddr(addr string) error {
	if addr == "" {
		return errors.New("empty address")
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q in %q", portStr, addr)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range in %q", port, addr)
	}
	return nil
}
