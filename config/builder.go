package config

import (
	"github.com/jpalmerr/msgboard"
)

// BuildOptions converts parsed configuration into SDK options for
// [msgboard.New].
//
// The config must come from [Load] or [Parse], which apply defaults and
// validation; the options re-validate on use.
func BuildOptions(cfg *Config) []msgboard.Option {
	opts := []msgboard.Option{
		msgboard.WithServiceURL(cfg.ServiceURL),
		msgboard.WithMethod(cfg.Method),
		msgboard.WithPort(cfg.Port),
		msgboard.WithDialTimeout(cfg.DialTimeout.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, msgboard.WithTitle(cfg.Title))
	}
	if cfg.Account != "" {
		opts = append(opts, msgboard.WithAccount(cfg.Account))
	}
	if len(cfg.Context) > 0 {
		opts = append(opts, msgboard.WithContext(cfg.Context))
	}

	return opts
}
