package config

import (
	"strings"
	"testing"
	"time"
)

const (
	errMissingPort     = "missing port"
	errUnexpectedError = "unexpected error: %v"
	errExpectedValErr  = "expected validation error"
	testAddrIPv4       = "0.0.0.0:8080"
	testAddrIPv6       = "[::]:9000"
	testAddrEmptyHost  = ":8080"
	testAddrNoPort     = "missing-port"
)

func TestConfigValidate_Valid(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Engine = "pebble"
	cfg.Server.Transport = "http"
	cfg.Server.Listen = testAddrIPv4
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config should pass validation: %v", err)
	}
}

func TestConfigValidate_EmptyOptionalFields(t *testing.T) {
	// stdio ignores listen; empty engine, level and format fall back at runtime
	cfg := Defaults()
	cfg.Store.Engine = ""
	cfg.Server.Listen = ""
	cfg.Logging.Level = ""
	cfg.Logging.Format = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf(errUnexpectedError, err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown engine", func(c *Config) { c.Store.Engine = "rocksdb" }, `unknown engine "rocksdb"`},
		{"negative capacity", func(c *Config) { c.Store.Capacity = -1 }, "store.capacity"},
		{"negative timeout", func(c *Config) { c.Store.OpenTimeout = -time.Second }, "store.open_timeout"},
		{"unknown transport", func(c *Config) { c.Server.Transport = "grpc" }, "server.transport"},
		{"http without listen", func(c *Config) { c.Server.Transport = "http"; c.Server.Listen = "" }, "empty address"},
		{"listen missing port", func(c *Config) { c.Server.Listen = testAddrNoPort }, errMissingPort},
		{"listen bad port", func(c *Config) { c.Server.Listen = "127.0.0.1:http" }, "invalid port"},
		{"listen port range", func(c *Config) { c.Server.Listen = "127.0.0.1:70000" }, "out of range"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal(errExpectedValErr)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestConfigValidate_CollectsAll(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Engine = "rocksdb"
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal(errExpectedValErr)
	}
	for _, want := range []string{"store.engine", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateAddr(t *testing.T) {
	for _, addr := range []string{testAddrIPv4, testAddrIPv6, testAddrEmptyHost, "localhost:0"} {
		if err := validateAddr(addr); err != nil {
			t.Errorf("%s: "+errUnexpectedError, addr, err)
		}
	}
}
