// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/transfer"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

type uploadFlags struct {
	DatasetID    string
	Prefix       string
	Exclude      []string
	Metadata     map[string]string
	MetadataFile string
	Output       string
}

var uploadOpts uploadFlags

var uploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload files and directories into a dataset",
	Long: `Upload files and directories into a new or existing dataset.

Directories are walked recursively and their own name is kept as the first
segment of the relative path. Each file is stored under
<prefix>/<dataset id>/<relative path> and registered once committed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		// sized up front so the bar knows the total
		files, err := utils.DiscoverFiles(args, uploadOpts.Exclude)
		if err != nil {
			return err
		}
		var total int64
		for _, f := range files {
			total += f.Size
		}

		svc, err := transfer.NewTransferService(cmd.Context(), conf, logger)
		if err != nil {
			return err
		}
		progress, err := newProgress(cmd.ErrOrStderr(), "uploading", total, len(files))
		if err != nil {
			return err
		}

		report, err := svc.Upload(cmd.Context(), transfer.UploadRequest{
			Inputs:       args,
			Exclude:      uploadOpts.Exclude,
			DatasetID:    uploadOpts.DatasetID,
			Metadata:     toAnyMap(uploadOpts.Metadata),
			MetadataFile: uploadOpts.MetadataFile,
			Prefix:       uploadOpts.Prefix,
			Progress:     progress,
		})
		progress.Close()
		if err != nil && !(errors.Is(err, transfer.ErrNoFiles) && report != nil) {
			return err
		}
		if report.DatasetID != "" {
			logger.Donef("Dataset %s", report.DatasetID)
		}
		return printBatch(cmd.OutOrStdout(), "Uploaded", summarize(report.DatasetID, report.Batch, nil), uploadOpts.Output)
	},
}

func init() {
	f := uploadCmd.Flags()
	f.StringVarP(&uploadOpts.DatasetID, "dataset", "d", "", "append to an existing dataset instead of creating one")
	f.StringVar(&uploadOpts.Prefix, "prefix", "", "key prefix in the bucket (overrides the configured one)")
	f.StringSliceVarP(&uploadOpts.Exclude, "exclude", "x", nil, "glob of relative paths to skip, e.g. '**/*.tmp'")
	f.StringToStringVarP(&uploadOpts.Metadata, "metadata", "m", nil, "metadata of the new dataset, key=value")
	f.StringVarP(&uploadOpts.MetadataFile, "metadata-file", "f", "", "YAML or JSON metadata of the new dataset")
	f.StringVarP(&uploadOpts.Output, "output", "o", "short", "output format: short, json or yaml")
}
