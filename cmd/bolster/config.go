// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := utils.Entries()
		if utils.TranslateFormat(configOutput) != "short" {
			return utils.Render(cmd.OutOrStdout(), entries, configOutput)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "# environment: %s\n", viper.GetString(utils.CurrentEnvironment))
		fmt.Fprintln(tw, "KEY\tENV\tVALUE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.Env, e.Value)
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value in the active INI section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := utils.SetValue(args[0], args[1]); err != nil {
			return err
		}
		logger.Donef("%s updated in environment %s", args[0], viper.GetString(utils.CurrentEnvironment))
		return nil
	},
}

func init() {
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "short", "output format: short, json or yaml")
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
