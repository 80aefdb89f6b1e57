package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/gantryhq/gantry/internal/secrets"
)

// GCloudSecretChecker verifies secret references against the managed
// store through the gcloud CLI. It implements secrets.Resolver but
// refuses to read values: the platform resolves them at deploy time and
// the driver has no business seeing them.
type GCloudSecretChecker struct {
	bin     string
	project string
	runner  CommandRunner
}

func NewGCloudSecretChecker(project string) *GCloudSecretChecker {
	return &GCloudSecretChecker{bin: "gcloud", project: project, runner: execRunner}
}

func NewGCloudSecretCheckerWithRunner(project string, runner CommandRunner) *GCloudSecretChecker {
	return &GCloudSecretChecker{bin: "gcloud", project: project, runner: runner}
}

func (c *GCloudSecretChecker) Check(ctx context.Context, ref secrets.Ref) error {
	_, err := c.runner(ctx, c.bin,
		"secrets", "versions", "describe", ref.Version,
		"--secret", ref.Name,
		"--project", c.project,
		"--format", "value(name)",
	)
	if err != nil {
		return fmt.Errorf("secret %s is not resolvable in project %s: %w", ref, c.project, err)
	}
	return nil
}

func (c *GCloudSecretChecker) Resolve(ctx context.Context, ref secrets.Ref) (string, error) {
	return "", errors.New("secret values are resolved by the platform, not the deploy driver")
}
