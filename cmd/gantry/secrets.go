package gantry

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gantryhq/gantry/internal/filesystems"
	"github.com/gantryhq/gantry/internal/ingest"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets [source-path]",
	Short: "Suggest secret bindings for credentials found in the source tree",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := sourcePathArg(args)

		fmt.Printf("Scanning %s for environment configuration\n\n", sourcePath)

		if err := runSecretScan(sourcePath); err != nil {
			fmt.Printf("Secret scan failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(secretsCmd)
}

func runSecretScan(sourcePath string) error {
	filesystem := filesystems.NewLocalFS()

	result, err := ingest.NewScanner().Scan(context.Background(), filesystem, sourcePath)
	if err != nil {
		return err
	}

	if len(result.Env) == 0 {
		fmt.Println("No environment configuration found")
		return nil
	}

	fmt.Printf("Found %d environment variables from %d sources\n", len(result.Env), len(result.Sources))
	for _, source := range result.Sources {
		fmt.Printf("  - %s\n", source)
	}

	suggestions := ingest.SuggestBindings(result.Env)
	if len(suggestions) == 0 {
		fmt.Println("\nNo variables look like credentials")
		return nil
	}

	fmt.Printf("\nSuggested [deploy.secrets] bindings:\n")
	for _, binding := range suggestions {
		fmt.Printf("  %s = %q\n", binding.EnvVar, binding.Ref.String())
	}

	return nil
}
