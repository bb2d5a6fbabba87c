// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/transfer"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

type lsFlags struct {
	DatasetID string
	Before    string
	After     string
	Creator   string
	Order     string
	Limit     int
	Offset    int
	Files     bool
	Objects   bool
	Output    string
}

var lsOpts lsFlags

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List datasets, or the files of one dataset",
	Long: `List datasets matching the filters.

With --files the files registered for --dataset are listed instead; with
--objects the keys actually present in the bucket are listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		switch {
		case lsOpts.Files:
			if lsOpts.DatasetID == "" {
				return errors.New("--files requires --dataset")
			}
			svc, err := datasets.NewDatasetService(cmd.Context(), conf, logger)
			if err != nil {
				return err
			}
			files, err := svc.ListFiles(cmd.Context(), datasets.FileQuery{DatasetID: lsOpts.DatasetID})
			if err != nil {
				return err
			}
			return printFiles(w, files, lsOpts.Output)

		case lsOpts.Objects:
			if lsOpts.DatasetID == "" {
				return errors.New("--objects requires --dataset")
			}
			svc, err := transfer.NewTransferService(cmd.Context(), conf, logger)
			if err != nil {
				return err
			}
			objs, err := svc.ListObjects(cmd.Context(), lsOpts.DatasetID, "")
			if err != nil {
				return err
			}
			return printObjects(w, objs, lsOpts.Output)
		}

		q, err := lsOpts.query()
		if err != nil {
			return err
		}
		svc, err := datasets.NewDatasetService(cmd.Context(), conf, logger)
		if err != nil {
			return err
		}
		list, err := svc.ListDatasets(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printDatasets(w, list, lsOpts.Output)
	},
}

func init() {
	orders := make([]string, len(datasets.Orderings))
	for i, o := range datasets.Orderings {
		orders[i] = string(o)
	}

	f := lsCmd.Flags()
	f.StringVarP(&lsOpts.DatasetID, "dataset", "d", "", "dataset id")
	f.StringVar(&lsOpts.Before, "before", "", "created before this day (YYYY-MM-DD)")
	f.StringVar(&lsOpts.After, "after", "", "created on or after this day (YYYY-MM-DD)")
	f.StringVar(&lsOpts.Creator, "creator", "", "creator role")
	f.StringVar(&lsOpts.Order, "order", "", "sort order: "+strings.Join(orders, ", "))
	f.IntVar(&lsOpts.Limit, "limit", 0, "maximum number of datasets")
	f.IntVar(&lsOpts.Offset, "offset", 0, "datasets to skip")
	f.BoolVar(&lsOpts.Files, "files", false, "list the registered files of --dataset")
	f.BoolVar(&lsOpts.Objects, "objects", false, "list the stored objects of --dataset")
	f.StringVarP(&lsOpts.Output, "output", "o", "short", "output format: short, json or yaml")
	lsCmd.MarkFlagsMutuallyExclusive("files", "objects")
}

func (f lsFlags) query() (datasets.DatasetQuery, error) {
	q := datasets.DatasetQuery{ID: f.DatasetID, Creator: f.Creator, Limit: f.Limit, Offset: f.Offset}
	var err error
	if q.Before, err = parseDay("before", f.Before); err != nil {
		return q, err
	}
	if q.After, err = parseDay("after", f.After); err != nil {
		return q, err
	}
	if f.Order != "" {
		if q.Order, err = datasets.ParseOrdering(f.Order); err != nil {
			return q, err
		}
	}
	return q, nil
}

func parseDay(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(datasets.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, s)
	}
	return &t, nil
}

func printDatasets(w io.Writer, list []datasets.Dataset, format string) error {
	if utils.TranslateFormat(format) != "short" {
		return utils.Render(w, list, format)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tCREATOR")
	for _, ds := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ds.ID, ds.CreatedDate, ds.CreatorRole)
	}
	return tw.Flush()
}

func printFiles(w io.Writer, files []datasets.FileRecord, format string) error {
	if utils.TranslateFormat(format) != "short" {
		return utils.Render(w, files, format)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tCHECKSUM")
	for _, f := range files {
		rel, err := f.RelativePath()
		if err != nil {
			rel = f.URL
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rel, units.BytesSize(float64(f.Filesize)), f.Checksum)
	}
	return tw.Flush()
}

func printObjects(w io.Writer, objs []config.S3File, format string) error {
	if utils.TranslateFormat(format) != "short" {
		return utils.Render(w, objs, format)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, o := range objs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Path, units.BytesSize(float64(o.Size)), o.LastModified)
	}
	return tw.Flush()
}
