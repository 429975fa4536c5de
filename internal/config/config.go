// Package config holds the editing options consumed by the analyses. All
// values are read at analysis time; nothing reconfigures mid-scan.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// IndentOffset is the width of one indentation level.
	IndentOffset int `mapstructure:"indent-offset"`
	// AlignMethodChain aligns `.method()` continuation lines under the dot
	// of the chain's first link instead of one level past the baseline.
	AlignMethodChain bool `mapstructure:"align-method-chain"`
	// IndentWhereClause indents a leading `where` one level past the
	// signature instead of leaving it at the baseline.
	IndentWhereClause bool `mapstructure:"indent-where-clause"`
	// AlignReturnType aligns a leading `->` with the function's argument
	// list opening paren.
	AlignReturnType bool `mapstructure:"align-return-type"`
	// MatchAngleBrackets enables generic angle-bracket recognition; when
	// off every `<`/`>` is an operator.
	MatchAngleBrackets bool `mapstructure:"match-angle-brackets"`

	// RustfmtPath and RustfmtArgs configure the external formatter bridge.
	RustfmtPath string   `mapstructure:"rustfmt-path"`
	RustfmtArgs []string `mapstructure:"rustfmt-args"`
}

func Default() *Config {
	return &Config{
		IndentOffset:       4,
		AlignMethodChain:   false,
		IndentWhereClause:  false,
		AlignReturnType:    true,
		MatchAngleBrackets: true,
		RustfmtPath:        "rustfmt",
		RustfmtArgs:        []string{"--emit", "stdout"},
	}
}

// Load reads .rust-mode.yaml from dir (falling back to the working
// directory) merged over the defaults, with RUST_MODE_* environment
// overrides. A missing config file is not an error.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".rust-mode")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	def := Default()
	v.SetDefault("indent-offset", def.IndentOffset)
	v.SetDefault("align-method-chain", def.AlignMethodChain)
	v.SetDefault("indent-where-clause", def.IndentWhereClause)
	v.SetDefault("align-return-type", def.AlignReturnType)
	v.SetDefault("match-angle-brackets", def.MatchAngleBrackets)
	v.SetDefault("rustfmt-path", def.RustfmtPath)
	v.SetDefault("rustfmt-args", def.RustfmtArgs)

	v.SetEnvPrefix("RUST_MODE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.IndentOffset <= 0 {
		cfg.IndentOffset = def.IndentOffset
	}
	return cfg, nil
}
