package deploy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gantryhq/gantry/internal/secrets"
)

// Revision is one immutable deployment of a service. The platform routes
// traffic to exactly one active revision per service.
type Revision struct {
	Name        string
	Fingerprint string
}

// Platform is the managed compute target. Implementations must be
// all-or-nothing: a failed DeployRevision leaves the prior revision
// serving.
type Platform interface {
	Name() string

	// ActiveRevision returns the currently serving revision, or nil when
	// the service does not exist yet.
	ActiveRevision(ctx context.Context, d Descriptor) (*Revision, error)

	// DeployRevision creates or updates the service so that exactly one
	// revision with the given fingerprint serves traffic.
	DeployRevision(ctx context.Context, d Descriptor, fingerprint string) (*Revision, error)
}

// Driver validates a descriptor and drives the platform. Every check runs
// before the first platform mutation; there are no retries and no partial
// success.
type Driver struct {
	platform Platform
	resolver secrets.Resolver
	log      zerolog.Logger
}

func NewDriver(platform Platform, resolver secrets.Resolver, log zerolog.Logger) *Driver {
	return &Driver{platform: platform, resolver: resolver, log: log}
}

// Deploy creates or updates the one named revision. Re-deploying an
// identical descriptor is a no-op that returns the already-active
// revision.
func (dr *Driver) Deploy(ctx context.Context, d Descriptor) (*Revision, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deployment descriptor: %w", err)
	}

	if err := dr.checkSecretRefs(ctx, d); err != nil {
		return nil, err
	}

	fingerprint := d.Fingerprint()
	log := dr.log.With().Str("service", d.Service).Str("fingerprint", fingerprint).Logger()

	active, err := dr.platform.ActiveRevision(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to read active revision of %s: %w", d.Service, err)
	}
	if active != nil && active.Fingerprint == fingerprint {
		log.Info().Str("revision", active.Name).Msg("descriptor unchanged, keeping active revision")
		return active, nil
	}

	log.Info().Str("platform", dr.platform.Name()).Msg("deploying revision")
	revision, err := dr.platform.DeployRevision(ctx, d, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("deployment of %s failed: %w", d.Service, err)
	}

	log.Info().Str("revision", revision.Name).Msg("revision deployed")
	return revision, nil
}

// checkSecretRefs verifies every reference resolves before the platform is
// touched. Only existence is checked; values never pass through here.
func (dr *Driver) checkSecretRefs(ctx context.Context, d Descriptor) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, binding := range d.Secrets {
		group.Go(func() error {
			if err := dr.resolver.Check(ctx, binding.Ref); err != nil {
				return fmt.Errorf("secret binding %s: %w", binding.EnvVar, err)
			}
			return nil
		})
	}

	return group.Wait()
}
