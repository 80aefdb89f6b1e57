package gantry

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gantryhq/gantry/internal/config"
	"github.com/gantryhq/gantry/internal/filesystems"
)

var (
	cfgFile     string
	projectFile string
)

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Package and deploy a WSGI service to a managed compute platform",
	Long: `Gantry turns a WSGI application source tree into a deployed service:
1. Render  - Produce the container build recipe and entry command
2. Deploy  - Create or update one service revision with secret references
             and private-network placement
3. Launch  - Run as the container entry command and supervise the server`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gantry.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectFile, "project-file", config.DefaultFileName, "project file relative to the source tree")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gantry")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadProject reads the project file from the source tree.
func loadProject(sourcePath string) (*config.Project, filesystems.FileSystem, error) {
	filesystem := filesystems.NewLocalFS()

	path := filesystem.Join(sourcePath, projectFile)
	project, err := config.Load(filesystem, path)
	if err != nil {
		return nil, nil, err
	}

	return project, filesystem, nil
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func sourcePathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
