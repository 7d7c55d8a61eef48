package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNoCredentials is returned when a provider has nothing to offer.
var ErrNoCredentials = errors.New("secrets: no credentials found")

// Credentials are the keys used to sign object storage requests.
type Credentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// Complete reports whether both the key id and the secret are set.
func (c Credentials) Complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Provider resolves storage credentials.
type Provider interface {
	Retrieve(ctx context.Context) (Credentials, error)
}

// Static always returns the same credentials.
type Static Credentials

func (s Static) Retrieve(context.Context) (Credentials, error) {
	c := Credentials(s)
	if !c.Complete() {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Env reads credentials from named environment variables.
type Env struct {
	AccessKeyVar    string
	SecretKeyVar    string
	SessionTokenVar string
}

func (e Env) Retrieve(context.Context) (Credentials, error) {
	c := Credentials{
		AccessKeyID:     os.Getenv(e.AccessKeyVar),
		SecretAccessKey: os.Getenv(e.SecretKeyVar),
	}
	if e.SessionTokenVar != "" {
		c.SessionToken = os.Getenv(e.SessionTokenVar)
	}
	if !c.Complete() {
		return Credentials{}, fmt.Errorf("%w in %s/%s", ErrNoCredentials, e.AccessKeyVar, e.SecretKeyVar)
	}
	return c, nil
}

// File reads credentials from a YAML document, typically a mounted secret.
type File struct {
	Path string
}

func (f File) Retrieve(context.Context) (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse secrets file: %w", err)
	}
	if !c.Complete() {
		return Credentials{}, fmt.Errorf("%w in %s", ErrNoCredentials, f.Path)
	}
	return c, nil
}

// Chain returns the first complete credentials from its providers.
type Chain []Provider

func (ch Chain) Retrieve(ctx context.Context) (Credentials, error) {
	var errs []error
	for _, p := range ch {
		c, err := p.Retrieve(ctx)
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{}, errors.Join(errs...)
}
