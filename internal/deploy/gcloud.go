package deploy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const fingerprintLabel = "gantry-fingerprint"

// CommandRunner executes a CLI invocation and returns its stdout.
// Swappable in tests so no gcloud binary is needed.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// GCloudPlatform drives a Cloud Run style target through the gcloud CLI.
// The remote pipeline builds the image from the source tree using the
// recipe in it; gantry never pushes bytes itself.
type GCloudPlatform struct {
	bin    string
	runner CommandRunner
}

func NewGCloudPlatform() *GCloudPlatform {
	return &GCloudPlatform{bin: "gcloud", runner: execRunner}
}

// NewGCloudPlatformWithRunner is for tests and dry runs.
func NewGCloudPlatformWithRunner(runner CommandRunner) *GCloudPlatform {
	return &GCloudPlatform{bin: "gcloud", runner: runner}
}

func (g *GCloudPlatform) Name() string {
	return "gcloud-run"
}

// DeployArgs builds the full argv after the binary name. Exposed so a dry
// run can print exactly what would execute.
func (g *GCloudPlatform) DeployArgs(d Descriptor, fingerprint string) []string {
	args := []string{
		"run", "deploy", d.Service,
		"--source", d.SourceDir,
		"--region", d.Region,
		"--project", d.Project,
		"--labels", fmt.Sprintf("%s=%s", fingerprintLabel, fingerprint),
	}

	if d.Network != "" {
		args = append(args, "--network", d.Network, "--subnet", d.Subnet)
	}

	if bindings := d.sortedSecrets(); len(bindings) > 0 {
		pairs := make([]string, 0, len(bindings))
		for _, binding := range bindings {
			pairs = append(pairs, binding.EnvVar+"="+binding.Ref.PlatformArg())
		}
		args = append(args, "--set-secrets", strings.Join(pairs, ","))
	}

	if d.Public {
		args = append(args, "--allow-unauthenticated")
	} else {
		args = append(args, "--no-allow-unauthenticated")
	}

	return append(args, "--quiet")
}

func (g *GCloudPlatform) DeployRevision(ctx context.Context, d Descriptor, fingerprint string) (*Revision, error) {
	if _, err := g.runner(ctx, g.bin, g.DeployArgs(d, fingerprint)...); err != nil {
		return nil, err
	}

	// The deploy command does not print the revision name in a stable
	// format, so read it back.
	return g.ActiveRevision(ctx, d)
}

func (g *GCloudPlatform) ActiveRevision(ctx context.Context, d Descriptor) (*Revision, error) {
	out, err := g.runner(ctx, g.bin,
		"run", "services", "describe", d.Service,
		"--region", d.Region,
		"--project", d.Project,
		"--format", fmt.Sprintf("value(status.latestReadyRevisionName,metadata.labels.%s)", fingerprintLabel),
	)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) == 0 || fields[0] == "" {
		return nil, nil
	}

	revision := &Revision{Name: fields[0]}
	if len(fields) > 1 {
		revision.Fingerprint = fields[1]
	}
	return revision, nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "could not be found")
}
