// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

type createFlags struct {
	ID           string
	Metadata     map[string]string
	MetadataFile string
	Output       string
}

var createOpts createFlags

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := datasets.NewDatasetService(cmd.Context(), conf, logger)
		if err != nil {
			return err
		}
		ds, err := svc.CreateDataset(cmd.Context(), datasets.CreateRequest{
			ID:       createOpts.ID,
			Metadata: toAnyMap(createOpts.Metadata),
			FilePath: createOpts.MetadataFile,
		})
		if err != nil {
			return err
		}
		if utils.TranslateFormat(createOpts.Output) == "short" {
			fmt.Fprintln(cmd.OutOrStdout(), ds.ID)
			return nil
		}
		return utils.Render(cmd.OutOrStdout(), ds, createOpts.Output)
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createOpts.ID, "id", "", "dataset id (a UUID); generated when omitted")
	f.StringToStringVarP(&createOpts.Metadata, "metadata", "m", nil, "metadata entries, key=value")
	f.StringVarP(&createOpts.MetadataFile, "metadata-file", "f", "", "YAML or JSON metadata document")
	f.StringVarP(&createOpts.Output, "output", "o", "short", "output format: short, json or yaml")
}

func toAnyMap(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
