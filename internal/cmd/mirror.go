package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/store"
	"github.com/adsmirror/adsmirror/internal/output"
)

// listCommand builds "<noun> list", reading mirrored rows of one user
// straight from the store. It never contacts the Graph API.
func listCommand[T any](
	noun string,
	list func(ctx context.Context, db *store.Store, userID int64) ([]T, error),
	render func(output.Format, []T) (string, error),
) *cobra.Command {
	var userID int64

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List mirrored %s for a user", noun),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}
			format, err := resolveOutputFormat(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close() // nolint:errcheck // best-effort cleanup

			items, err := list(cmd.Context(), db, userID)
			if err != nil {
				return err
			}
			rendered, err := render(format, items)
			if err != nil {
				return err
			}
			return writeOutput(cmd, rendered)
		},
	}
	listCmd.Flags().Int64Var(&userID, "user", 0, "owner user id")
	addOutputFlags(listCmd)
	return listCmd
}

func init() {
	for _, group := range []struct {
		use   string
		short string
		list  *cobra.Command
	}{
		{"campaigns", "Inspect mirrored campaigns", listCommand("campaigns",
			func(ctx context.Context, db *store.Store, id int64) ([]core.Campaign, error) { return db.ListCampaigns(ctx, id) },
			output.Campaigns)},
		{"ad-groups", "Inspect mirrored ad groups", listCommand("ad groups",
			func(ctx context.Context, db *store.Store, id int64) ([]core.AdGroup, error) { return db.ListAdGroups(ctx, id) },
			output.AdGroups)},
		{"ads", "Inspect mirrored ads", listCommand("ads",
			func(ctx context.Context, db *store.Store, id int64) ([]core.Ad, error) { return db.ListAds(ctx, id) },
			output.Ads)},
		{"creatives", "Inspect mirrored ad creatives", listCommand("ad creatives",
			func(ctx context.Context, db *store.Store, id int64) ([]core.AdCreative, error) { return db.ListCreatives(ctx, id) },
			output.Creatives)},
	} {
		parent := &cobra.Command{Use: group.use, Short: group.short}
		parent.AddCommand(group.list)
		rootCmd.AddCommand(parent)
	}
}
