package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/feedstore/internal/cli/output"
	"github.com/marmos91/feedstore/internal/cli/prompt"
	"github.com/marmos91/feedstore/pkg/feedstore"
	"github.com/marmos91/feedstore/pkg/feedstoreconfig"
)

var feedsForce bool

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Inspect and manage feeds in the configured store",
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known feed",
	RunE:  runFeedsList,
}

var feedsDeleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Forget a feed's descriptor (an open feed is not closed)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedsDelete,
}

func init() {
	feedsDeleteCmd.Flags().BoolVar(&feedsForce, "force", false, "skip the confirmation prompt")
	feedsCmd.AddCommand(feedsListCmd)
	feedsCmd.AddCommand(feedsDeleteCmd)
	rootCmd.AddCommand(feedsCmd)
}

// feedsTable renders descriptors as a TableRenderer for output.PrintTable.
type feedsTable struct {
	descriptors []*feedstore.FeedDescriptor
}

func (t feedsTable) Headers() []string {
	return []string{"PATH", "KEY", "STATE", "LENGTH"}
}

func (t feedsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.descriptors))
	for _, d := range t.descriptors {
		length := "-"
		if feed := d.Feed(); feed != nil {
			length = fmt.Sprintf("%d", feed.Length())
		}
		rows = append(rows, []string{d.Path, hex.EncodeToString(d.Key), d.State().String(), length})
	}
	return rows
}

func withOpenedStore(ctx context.Context, fn func(*feedstore.FeedStore) error) error {
	cfg, err := feedstoreconfig.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build feedstore: %w", err)
	}
	if err := store.Open(ctx); err != nil {
		return fmt.Errorf("open feedstore: %w", err)
	}
	defer func() { _ = store.Close(ctx) }()

	return fn(store)
}

func runFeedsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	return withOpenedStore(ctx, func(store *feedstore.FeedStore) error {
		descriptors := store.GetDescriptors()
		return output.PrintTable(os.Stdout, feedsTable{descriptors: descriptors})
	})
}

func runFeedsDelete(cmd *cobra.Command, args []string) error {
	path := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete feed %s? This removes its descriptor permanently", path), feedsForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted")
		return nil
	}

	ctx := context.Background()
	return withOpenedStore(ctx, func(store *feedstore.FeedStore) error {
		if err := store.DeleteDescriptor(ctx, path); err != nil {
			return err
		}
		fmt.Printf("Deleted feed %s\n", path)
		return nil
	})
}
