// Package deploy creates or updates one service revision on a managed
// compute platform from an immutable deployment descriptor. The driver
// carries secret references, never secret values.
package deploy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gantryhq/gantry/internal/secrets"
)

var (
	serviceNameRe = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)
	envNameRe     = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
)

// SecretBinding maps one environment variable to a secret reference the
// platform resolves at deploy time.
type SecretBinding struct {
	EnvVar string
	Ref    secrets.Ref
}

// Descriptor is the complete deployment input for one service. Each deploy
// supersedes the previous descriptor wholesale; there is no partial
// update.
type Descriptor struct {
	Service string
	Region  string
	Project string

	// SourceDir is the build context; the platform builds the image from
	// it using the recipe in the tree.
	SourceDir string

	// Network and Subnet place the service on a private network. Both are
	// set or both are empty.
	Network string
	Subnet  string

	// Public exposes the service without platform-level authentication.
	Public bool

	Secrets []SecretBinding
}

// Validate checks every reference shape before anything touches the
// platform. Any invalid field aborts the whole deployment.
func (d Descriptor) Validate() error {
	if !serviceNameRe.MatchString(d.Service) {
		return fmt.Errorf("invalid service name %q", d.Service)
	}
	if d.Region == "" {
		return fmt.Errorf("service %s has no region", d.Service)
	}
	if d.Project == "" {
		return fmt.Errorf("service %s has no project", d.Service)
	}
	if d.SourceDir == "" {
		return fmt.Errorf("service %s has no source directory", d.Service)
	}
	if (d.Network == "") != (d.Subnet == "") {
		return fmt.Errorf("network and subnet must be set together (network=%q, subnet=%q)", d.Network, d.Subnet)
	}

	seen := make(map[string]bool, len(d.Secrets))
	for _, binding := range d.Secrets {
		if !envNameRe.MatchString(binding.EnvVar) {
			return fmt.Errorf("invalid environment variable name %q", binding.EnvVar)
		}
		if seen[binding.EnvVar] {
			return fmt.Errorf("environment variable %s bound twice", binding.EnvVar)
		}
		seen[binding.EnvVar] = true
		if binding.Ref.Name == "" || binding.Ref.Version == "" {
			return fmt.Errorf("environment variable %s has an incomplete secret reference", binding.EnvVar)
		}
	}

	return nil
}

// sortedSecrets returns the bindings in a stable order.
func (d Descriptor) sortedSecrets() []SecretBinding {
	bindings := make([]SecretBinding, len(d.Secrets))
	copy(bindings, d.Secrets)
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].EnvVar < bindings[j].EnvVar
	})
	return bindings
}

// Fingerprint is a stable digest of the descriptor. Two descriptors with
// the same fingerprint describe the same revision, which is what makes
// re-deploys idempotent.
func (d Descriptor) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "service=%s\nregion=%s\nproject=%s\nsource=%s\nnetwork=%s\nsubnet=%s\npublic=%t\n",
		d.Service, d.Region, d.Project, d.SourceDir, d.Network, d.Subnet, d.Public)
	for _, binding := range d.sortedSecrets() {
		fmt.Fprintf(&b, "secret=%s=%s\n", binding.EnvVar, binding.Ref)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}
