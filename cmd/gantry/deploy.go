package gantry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gantryhq/gantry/internal/deploy"
	"github.com/gantryhq/gantry/internal/filesystems"
	"github.com/gantryhq/gantry/internal/ingest"
)

var deployDryRun bool

var deployCmd = &cobra.Command{
	Use:   "deploy [source-path]",
	Short: "Create or update the service revision on the compute platform",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := sourcePathArg(args)

		if err := runDeploy(cmd.Context(), sourcePath); err != nil {
			fmt.Printf("Deployment failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "print the platform command instead of executing it")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(ctx context.Context, sourcePath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	project, filesystem, err := loadProject(sourcePath)
	if err != nil {
		return err
	}

	descriptor, err := project.Descriptor(sourcePath)
	if err != nil {
		return err
	}

	// The recipe must hold together before the remote pipeline builds it
	spec, err := project.ImageSpec()
	if err != nil {
		return err
	}
	if _, err := spec.Render(); err != nil {
		return fmt.Errorf("build recipe does not validate: %w", err)
	}

	warnUnboundSecrets(ctx, filesystem, sourcePath, descriptor)

	platform := deploy.NewGCloudPlatform()

	if deployDryRun {
		args := platform.DeployArgs(descriptor, descriptor.Fingerprint())
		fmt.Printf("gcloud %s\n", strings.Join(args, " "))
		return nil
	}

	driver := deploy.NewDriver(platform, deploy.NewGCloudSecretChecker(descriptor.Project), newLogger())
	revision, err := driver.Deploy(ctx, descriptor)
	if err != nil {
		return err
	}

	fmt.Printf("Service %s is serving revision %s\n", descriptor.Service, revision.Name)
	return nil
}

// warnUnboundSecrets scans the tree for env vars that look like
// credentials but have no secret binding in the descriptor. Advisory
// only; the deploy proceeds either way.
func warnUnboundSecrets(ctx context.Context, filesystem filesystems.FileSystem, sourcePath string, descriptor deploy.Descriptor) {
	result, err := ingest.NewScanner().Scan(ctx, filesystem, sourcePath)
	if err != nil {
		return
	}

	bound := make(map[string]bool, len(descriptor.Secrets))
	for _, binding := range descriptor.Secrets {
		bound[binding.EnvVar] = true
	}

	for _, suggestion := range ingest.SuggestBindings(result.Env) {
		if !bound[suggestion.EnvVar] {
			fmt.Printf("Warning: %s looks sensitive but has no secret binding (suggested: %s)\n",
				suggestion.EnvVar, suggestion.Ref)
		}
	}
}
