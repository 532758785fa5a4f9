/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "AIRMESH"

var (
	cfgFile   string
	verbose   bool
	logFormat string
	profMode  string

	logger   *zap.Logger
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "airmesh",
	Short: "Prepare CAD geometry and build refined meshes for magnetostatic simulation",
	Long: `
Reads an IGES exchange file, converts it to meters, embeds the parts in a padded box of air,
meshes the domain with a distance based refinement field and optionally writes the Elmer
solver input for it.

airmesh mesh two_magnets.igs -o two_magnets.msh --solver-config`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if logger, err = newLogger(verbose, logFormat); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		switch profMode {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
		default:
			return fmt.Errorf("unknown profile mode %q, use cpu or mem", profMode)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
			profiler = nil
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(verbose bool, format string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	switch format {
	case "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q, use json or console", format)
	}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

/*
Execute adds all child commands to the root command and sets flags appropriately. An interrupt
cancels the running command, which still closes its kernel session before returning.
*/
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && logger != nil {
		logger.Error("airmesh failed", zap.Error(err))
		_ = logger.Sync()
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.airmesh.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, including kernel scripts and probes")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log encoding: json or console")
	rootCmd.PersistentFlags().StringVar(&profMode, "profile", "", "write a cpu or mem profile to the working directory")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		// Search config in home directory with name ".airmesh" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".airmesh")
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// envOrConfigSet reports whether key was given by the environment or a config file
func envOrConfigSet(key string) bool {
	return viper.IsSet(key)
}
