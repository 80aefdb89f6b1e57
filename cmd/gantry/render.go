package gantry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var renderStdout bool

var renderCmd = &cobra.Command{
	Use:   "render [source-path]",
	Short: "Render the container build recipe for the service",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := sourcePathArg(args)

		if err := runRender(sourcePath); err != nil {
			fmt.Printf("Render failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderStdout, "stdout", false, "print the Dockerfile instead of writing it")
	rootCmd.AddCommand(renderCmd)
}

func runRender(sourcePath string) error {
	project, _, err := loadProject(sourcePath)
	if err != nil {
		return err
	}

	spec, err := project.ImageSpec()
	if err != nil {
		return err
	}

	dockerfile, err := spec.Render()
	if err != nil {
		return err
	}

	if renderStdout {
		fmt.Print(dockerfile)
		return nil
	}

	target := filepath.Join(sourcePath, "Dockerfile")
	if err := os.WriteFile(target, []byte(dockerfile), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	fmt.Printf("Wrote %s (base %s, manifest %s)\n", target, spec.BaseImage, spec.Manifest)
	return nil
}
