package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pevans/feedwatch/discovery"
	"github.com/pevans/feedwatch/subscription"
)

var errNoStore = errors.New("no subscription store configured (set subscriptions.dsn or FEEDWATCH_SUBSCRIPTIONS_DSN)")

func newSubscriptionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage subscriptions",
	}

	cmd.AddCommand(
		newSubscriptionsListCmd(a),
		newSubscriptionsAddCmd(a),
		newSubscriptionsDeleteCmd(a),
		newSubscriptionsImportCmd(a),
		newSubscriptionsDiscoverCmd(a),
	)
	return cmd
}

// openStore opens the SQLite subscription store, which add, delete and
// import require.
func (a *app) openStore() (*subscription.Store, error) {
	if a.cfg.Subscriptions.DSN == "" {
		return nil, errNoStore
	}
	store, err := subscription.NewStore(a.cfg.Subscriptions.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription store: %w", err)
	}
	return store, nil
}

func newSubscriptionsListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// The store has IDs to show; a subscription file does not
			if a.cfg.Subscriptions.DSN != "" {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()

				records, err := store.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list subscriptions: %w", err)
				}
				if format == "json" {
					return printJSON(out, records)
				}
				printRecordTable(out, records)
				return nil
			}

			subs, err := subscription.LoadFile(a.cfg.Subscriptions.File)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(out, subs)
			}
			printSubscriptionTable(out, subs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	return cmd
}

func newSubscriptionsAddCmd(a *app) *cobra.Command {
	var (
		name     string
		tags     []string
		discover bool
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a subscription",
		Long: `Add a subscription to the store.

With --discover the URL may be a website's page; the first feed it
advertises is subscribed to, named after the page unless --name is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedURL := args[0]
			if discover {
				result, err := discovery.New(nil, a.cfg.Fetch.UserAgent).Discover(cmd.Context(), feedURL)
				if err != nil {
					return fmt.Errorf("failed to discover feed: %w", err)
				}
				feedURL = result.Feeds[0].URL
				if name == "" {
					name = result.Title
				}
				a.logger.Debug("discovered feed", "page", args[0], "feed", feedURL, "candidates", len(result.Feeds))
			}
			if name == "" {
				return errors.New("--name is required")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if tags == nil {
				tags = []string{}
			}
			record, err := store.Create(cmd.Context(), subscription.Subscription{
				Name: name,
				URL:  feedURL,
				Tags: tags,
			})
			if err != nil {
				return fmt.Errorf("failed to add subscription: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added subscription %s (%s)\n", record.Name, record.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (required unless --discover)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&discover, "discover", false, "treat the URL as a web page and subscribe to the feed it advertises")
	return cmd
}

func newSubscriptionsDiscoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <page-url>",
		Short: "List the feeds a web page advertises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := discovery.New(nil, a.cfg.Fetch.UserAgent).Discover(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Title != "" {
				fmt.Fprintf(out, "%s\n\n", result.Title)
			}
			for _, feed := range result.Feeds {
				title := feed.Title
				if title == "" {
					title = "-"
				}
				fmt.Fprintf(out, "%-24s %-30s %s\n", feed.Type, truncate(title, 30), feed.URL)
			}
			return nil
		},
	}
}

func newSubscriptionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid subscription ID: %w", err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete subscription: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted subscription %s\n", id)
			return nil
		},
	}
}

func newSubscriptionsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import subscriptions from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := subscription.LoadFile(args[0])
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			added, err := store.Import(cmd.Context(), subs)
			if err != nil {
				return fmt.Errorf("failed to import subscriptions: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d subscriptions (%d already present)\n",
				added, len(subs), len(subs)-added)
			return nil
		},
	}
}

// printRecordTable prints stored subscriptions in human-readable table format
func printRecordTable(w io.Writer, records []subscription.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No subscriptions configured.")
		return
	}

	fmt.Fprintf(w, "%-36s %-30s %-20s %s\n", "ID", "NAME", "TAGS", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, record := range records {
		fmt.Fprintf(w, "%-36s %-30s %-20s %s\n",
			record.ID.String(),
			truncate(record.Name, 30),
			truncate(strings.Join(record.Tags, ","), 20),
			record.URL,
		)
	}
}

// printSubscriptionTable prints file-backed subscriptions in table format
func printSubscriptionTable(w io.Writer, subs []subscription.Subscription) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No subscriptions configured.")
		return
	}

	fmt.Fprintf(w, "%-30s %-20s %s\n", "NAME", "TAGS", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, sub := range subs {
		fmt.Fprintf(w, "%-30s %-20s %s\n",
			truncate(sub.Name, 30),
			truncate(strings.Join(sub.Tags, ","), 20),
			sub.URL,
		)
	}
}

// printJSON prints v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
