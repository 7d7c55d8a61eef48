package secrets

import "fmt"

// Config selects where storage credentials come from.
type Config struct {
	// Provider is one of env, file or chain (file, then env).
	Provider string `mapstructure:"provider" default:"env"`
	// File is the YAML secrets file used by the file provider.
	File string `mapstructure:"file" default:""`
	// AccessKeyEnv names the variable holding the access key id.
	AccessKeyEnv string `mapstructure:"access_key_env" default:"STORAGE_ACCESS_KEY"`
	// SecretKeyEnv names the variable holding the secret access key.
	SecretKeyEnv string `mapstructure:"secret_key_env" default:"STORAGE_SECRET_KEY"`
	// SessionTokenEnv optionally names a session token variable.
	SessionTokenEnv string `mapstructure:"session_token_env" default:""`
}

// New builds the provider described by cfg.
func New(cfg Config) (Provider, error) {
	env := Env{
		AccessKeyVar:    cfg.AccessKeyEnv,
		SecretKeyVar:    cfg.SecretKeyEnv,
		SessionTokenVar: cfg.SessionTokenEnv,
	}

	switch cfg.Provider {
	case "", "env":
		return env, nil
	case "file":
		if cfg.File == "" {
			return nil, fmt.Errorf("secrets: file provider requires a file path")
		}
		return File{Path: cfg.File}, nil
	case "chain":
		var ch Chain
		if cfg.File != "" {
			ch = append(ch, File{Path: cfg.File})
		}
		return append(ch, env), nil
	default:
		return nil, fmt.Errorf("secrets: unknown provider %q", cfg.Provider)
	}
}
