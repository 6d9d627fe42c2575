package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecret wraps secret reference failures.
var ErrSecret = errors.New("secret")

// SecretProvider resolves the ref part of "secretref:<provider>:<ref>".
// Implementations must not log secret values.
type SecretProvider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// SecretResolver replaces secret references in credential fields.
type SecretResolver struct {
	providers map[string]SecretProvider
}

// NewSecretResolver creates a resolver. The env and file providers are
// always registered; later providers with the same name replace them.
func NewSecretResolver(providers ...SecretProvider) *SecretResolver {
	r := &SecretResolver{providers: map[string]SecretProvider{
		"env":  envSecrets{},
		"file": fileSecrets{},
	}}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Resolve returns value unchanged unless it is a secret reference.
func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	name, ref, ok := ParseSecretRef(value)
	if !ok {
		return value, nil
	}
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: provider %q is not registered", ErrSecret, name)
	}
	out, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSecret, name, err)
	}
	if out == "" {
		return "", fmt.Errorf("%w: provider %q returned an empty value", ErrSecret, name)
	}
	return out, nil
}

// Apply resolves every credential field of cfg in place.
func (r *SecretResolver) Apply(ctx context.Context, cfg *Config) error {
	fields := []*string{&cfg.Cache.RedisPassword, &cfg.Cache.RedisURL, &cfg.Auth.JWTSecret}
	for i := range cfg.Auth.APIKeys {
		fields = append(fields, &cfg.Auth.APIKeys[i])
	}
	for _, f := range fields {
		v, err := r.Resolve(ctx, *f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

// ParseSecretRef splits "secretref:<provider>:<ref>".
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, "secretref:")
	if !found {
		return "", "", false
	}
	provider, ref, ok = strings.Cut(rest, ":")
	if !ok || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

type envSecrets struct{}

func (envSecrets) Name() string { return "env" }

func (envSecrets) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref)
	}
	return v, nil
}

// fileSecrets reads mounted secrets such as /run/secrets/<name>.
type fileSecrets struct{}

func (fileSecrets) Name() string { return "file" }

func (fileSecrets) Resolve(_ context.Context, ref string) (string, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
