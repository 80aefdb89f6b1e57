package gantry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantryhq/gantry/internal/launcher"
)

var (
	launchEnvFile string
	launchGrace   time.Duration
)

var launchCmd = &cobra.Command{
	Use:   "launch [source-path]",
	Short: "Run as the container entry command and supervise the server",
	Long: `Launch resolves the platform-injected PORT, builds the application
server command from the project file, and supervises the server process:
startup logging, SIGTERM forwarding, and a shutdown grace period.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := sourcePathArg(args)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if err := runLaunch(ctx, sourcePath); err != nil {
			fmt.Fprintf(os.Stderr, "Launch failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	launchCmd.Flags().StringVar(&launchEnvFile, "env-file", ".env", "dotenv file loaded for local runs (ignored when absent)")
	launchCmd.Flags().DurationVar(&launchGrace, "grace", launcher.DefaultGracePeriod, "shutdown grace period for in-flight requests")
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(ctx context.Context, sourcePath string) error {
	project, _, err := loadProject(sourcePath)
	if err != nil {
		return err
	}

	if err := launcher.LoadEnvFile(launchEnvFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", launchEnvFile, err)
	}

	settings, err := project.LaunchSettings()
	if err != nil {
		return err
	}

	params, err := launcher.NewParams(settings, os.LookupEnv)
	if err != nil {
		return err
	}

	supervisor := launcher.NewSupervisor(params, launchGrace, newLogger())
	return supervisor.Run(ctx)
}
