// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/transfer"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

type downloadFlags struct {
	Destination string
	Prefixes    []string
	Yes         bool
	Output      string
}

var downloadOpts downloadFlags

var downloadCmd = &cobra.Command{
	Use:   "download <dataset-id>",
	Short: "Download the registered files of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		datasetID := args[0]
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := transfer.NewTransferService(cmd.Context(), conf, logger)
		if err != nil {
			return err
		}

		records, err := svc.Datasets().ListFiles(cmd.Context(), datasets.FileQuery{DatasetID: datasetID, Prefixes: downloadOpts.Prefixes})
		if err != nil {
			return err
		}
		var total int64
		for _, r := range records {
			total += r.Filesize
		}

		in := bufio.NewReader(cmd.InOrStdin())
		confirm := func(localPath string) (bool, error) {
			return utils.Confirm(in, cmd.ErrOrStderr(), fmt.Sprintf("%s exists, overwrite? [y/N] ", localPath), false)
		}

		progress, err := newProgress(cmd.ErrOrStderr(), "downloading", total, len(records))
		if err != nil {
			return err
		}
		report, err := svc.Download(cmd.Context(), transfer.DownloadRequest{
			DatasetID:   datasetID,
			Prefixes:    downloadOpts.Prefixes,
			Destination: downloadOpts.Destination,
			Overwrite:   downloadOpts.Yes,
			Confirm:     confirm,
			Progress:    progress,
		})
		progress.Close()
		if err != nil {
			return err
		}
		return printBatch(cmd.OutOrStdout(), "Downloaded", summarize(datasetID, report.Batch, report.Skipped), downloadOpts.Output)
	},
}

func init() {
	f := downloadCmd.Flags()
	f.StringVarP(&downloadOpts.Destination, "dest", "d", ".", "local destination directory")
	f.StringSliceVarP(&downloadOpts.Prefixes, "prefix", "p", nil, "only files whose relative path starts with this")
	f.BoolVarP(&downloadOpts.Yes, "yes", "y", false, "overwrite existing files without asking")
	f.StringVarP(&downloadOpts.Output, "output", "o", "short", "output format: short, json or yaml")
}
