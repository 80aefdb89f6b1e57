package secrets

import (
	"context"
	"fmt"
	"strings"
)

// DefaultVersion is the version bound when a reference does not name one.
const DefaultVersion = "latest"

// Ref is a named, versioned pointer to a sensitive value held in an
// external secret store. The deploy driver only ever carries refs; the
// hosting platform resolves them to values at deploy time.
type Ref struct {
	Name    string
	Version string
}

// ParseRef parses "name" or "name@version" into a Ref. A bare name binds
// the latest version.
func ParseRef(s string) (Ref, error) {
	name, version := s, DefaultVersion

	if at := strings.IndexByte(s, '@'); at >= 0 {
		name, version = s[:at], s[at+1:]
	}

	if name == "" {
		return Ref{}, fmt.Errorf("secret reference %q has no name", s)
	}
	if version == "" {
		return Ref{}, fmt.Errorf("secret reference %q has an empty version", s)
	}
	if strings.ContainsAny(name, " \t,=:") {
		return Ref{}, fmt.Errorf("secret name %q contains invalid characters", name)
	}

	return Ref{Name: name, Version: version}, nil
}

func (r Ref) String() string {
	return r.Name + "@" + r.Version
}

// PlatformArg renders the ref the way the platform CLI expects it
// (name:version).
func (r Ref) PlatformArg() string {
	return r.Name + ":" + r.Version
}

// Resolver maps a logical secret reference to its value. Components that
// only need to know a secret exists call Check and never see the value;
// the deploy driver is one of those.
type Resolver interface {
	// Check reports whether the reference can be resolved, without
	// returning the value.
	Check(ctx context.Context, ref Ref) error

	// Resolve returns the secret value for the reference.
	Resolve(ctx context.Context, ref Ref) (string, error)
}

// StaticResolver resolves refs from a fixed map, keyed by secret name.
// Used in tests and for local dry runs.
type StaticResolver struct {
	values map[string]string
}

func NewStaticResolver(values map[string]string) *StaticResolver {
	return &StaticResolver{values: values}
}

func (r *StaticResolver) Check(ctx context.Context, ref Ref) error {
	if _, ok := r.values[ref.Name]; !ok {
		return fmt.Errorf("secret %s not found", ref)
	}
	return nil
}

func (r *StaticResolver) Resolve(ctx context.Context, ref Ref) (string, error) {
	value, ok := r.values[ref.Name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", ref)
	}
	return value, nil
}

// EnvResolver resolves secret names against process environment variables,
// for local launches where no managed store exists. The secret name is
// upper-cased with dashes replaced by underscores (db-pass -> DB_PASS).
type EnvResolver struct {
	lookup func(string) (string, bool)
}

func NewEnvResolver(lookup func(string) (string, bool)) *EnvResolver {
	return &EnvResolver{lookup: lookup}
}

func (r *EnvResolver) envName(ref Ref) string {
	return strings.ToUpper(strings.ReplaceAll(ref.Name, "-", "_"))
}

func (r *EnvResolver) Check(ctx context.Context, ref Ref) error {
	if _, ok := r.lookup(r.envName(ref)); !ok {
		return fmt.Errorf("secret %s not found in environment (%s unset)", ref, r.envName(ref))
	}
	return nil
}

func (r *EnvResolver) Resolve(ctx context.Context, ref Ref) (string, error) {
	value, ok := r.lookup(r.envName(ref))
	if !ok {
		return "", fmt.Errorf("secret %s not found in environment (%s unset)", ref, r.envName(ref))
	}
	return value, nil
}
