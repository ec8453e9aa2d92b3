package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/feedwatch/render"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		tags   []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Aggregate once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format: %s", format)
			}

			c, closeCache, err := openCache(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCache()

			source, closeSource, err := openSource(a.cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			subs, err := source.Subscriptions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load subscriptions: %w", err)
			}

			// No --tag flag means no filter at all
			var allowed []string
			if cmd.Flags().Changed("tag") {
				allowed = tags
			}

			report := newService(a.cfg, c, a.logger).Run(cmd.Context(), subs, allowed)
			page := render.NewPage(report.Items, subs, allowed)

			out := cmd.OutOrStdout()
			if format == "json" {
				return render.JSON(out, page)
			}
			if err := render.Text(out, page); err != nil {
				return err
			}

			if len(report.Failures) > 0 {
				fmt.Fprintf(out, "\n%d of %d subscriptions failed\n",
					len(report.Failures), len(report.Failures)+report.Succeeded)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "only include subscriptions with this tag (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
