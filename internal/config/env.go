package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override the config file,
// e.g. KVDOC_ENGINE or KVDOC_OPEN_TIMEOUT.
const EnvPrefix = "kvdoc"

// LoadDotenv loads .env and .env.local from the working directory into the
// process environment. Variables already set are kept; missing files are
// ignored.
func LoadDotenv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// NewViper returns a viper instance reading KVDOC_* variables. Callers bind
// command flags to it with BindPFlags.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// override keys, named as flags and (upper-cased, prefixed) as variables.
var overrides = []struct {
	key   string
	apply func(c *Config, v *viper.Viper)
}{
	{"engine", func(c *Config, v *viper.Viper) { c.Store.Engine = v.GetString("engine") }},
	{"capacity", func(c *Config, v *viper.Viper) { c.Store.Capacity = v.GetInt64("capacity") }},
	{"open-timeout", func(c *Config, v *viper.Viper) { c.Store.OpenTimeout = v.GetDuration("open-timeout") }},
	{"pool", func(c *Config, v *viper.Viper) { c.Store.Pool = v.GetBool("pool") }},
	{"transport", func(c *Config, v *viper.Viper) { c.Server.Transport = v.GetString("transport") }},
	{"listen", func(c *Config, v *viper.Viper) { c.Server.Listen = v.GetString("listen") }},
	{"log-level", func(c *Config, v *viper.Viper) { c.Logging.Level = v.GetString("log-level") }},
	{"log-format", func(c *Config, v *viper.Viper) { c.Logging.Format = v.GetString("log-format") }},
}

// Apply overwrites fields of c whose flag was changed or whose environment
// variable is set. Flags win over the environment, which wins over the file.
func (c *Config) Apply(v *viper.Viper) {
	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(c, v)
		}
	}
}
