// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

type globalFlags struct {
	Verbose bool
	Env     string

	ChunkSize           string
	MaxConcurrentFiles  int
	MaxConcurrentChunks int
	Progress            string
}

var (
	flags  globalFlags
	logger = log.NewLogger()
)

// errReported is returned once the failure has already been printed.
var errReported = errors.New("transfer failed")

var rootCmd = &cobra.Command{
	Use:   "bolster",
	Short: "Upload and download datasets to S3 compatible storage",
	Long: `bolster moves datasets between the local disk and an S3 compatible store.

Files are split into fixed size chunks and several files and chunks are moved
at the same time. Every uploaded file is registered in the dataset catalogue
together with its size and MD5 checksum.

Configuration is read from ~/.bolster.ini (override with BOLSTER_INI) and from
environment variables; see 'bolster config'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.EnableDebugLog(flags.Verbose)
		return utils.RegisterIniCfgWithViper(logger, flags.Env)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&flags.Env, "env", "e", "", "INI section to use (default is the current environment)")
	pf.StringVar(&flags.ChunkSize, "chunk-size", "", "chunk size, e.g. 16MiB")
	pf.IntVar(&flags.MaxConcurrentFiles, "max-files", 0, "files transferred at the same time")
	pf.IntVar(&flags.MaxConcurrentChunks, "max-chunks", 0, "chunks in flight per file")
	pf.StringVar(&flags.Progress, "progress", "bar", "progress output: bar, line or none")

	// flags win over INI and env only when given
	_ = viper.BindPFlag(utils.ChunkSize, pf.Lookup("chunk-size"))
	_ = viper.BindPFlag(utils.MaxConcurrentFiles, pf.Lookup("max-files"))
	_ = viper.BindPFlag(utils.MaxConcurrentChunks, pf.Lookup("max-chunks"))

	rootCmd.AddCommand(createCmd, uploadCmd, downloadCmd, lsCmd, configCmd)
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			logger.Errorf("%s", err)
		}
		return 1
	}
	return 0
}

func loadConfig() (config.Config, error) {
	conf, err := utils.BuildConfig()
	if err != nil {
		return config.Config{}, err
	}
	logger.Debugf("Environment %s, endpoint %s, bucket %s, %s chunks, %d files x %d chunks",
		viper.GetString(utils.CurrentEnvironment), conf.Core.BaseURL, conf.S3.Bucket,
		viper.GetString(utils.ChunkSize), conf.Transfer.MaxConcurrentFiles, conf.Transfer.MaxConcurrentChunks)
	return conf, nil
}
