package cmd

import (
	"fmt"
	"time"

	"github.com/mbolis/quick-form/model"
	"github.com/spf13/cobra"
)

var (
	shortLink  string
	shortAdmin string
)

var shortCmd = &cobra.Command{
	Use:   "short",
	Short: "Manage short links",
}

var shortCreateCmd = &cobra.Command{
	Use:   "create <url>",
	Short: "Store a short link redirecting to url",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		short, err := model.NewShortLink(shortLink, args[0], shortAdmin, time.Now())
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		err = st.Set(cmd.Context(), model.ShortPath(short.Link), short)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s/s/%s\n", cfg.Url(), short.Link)
		return nil
	},
}

func init() {
	shortCreateCmd.Flags().StringVar(&shortLink, "link", "", "link id, random when empty")
	shortCreateCmd.Flags().StringVar(&shortAdmin, "admin", "", "owning admin id")
	shortCmd.AddCommand(shortCreateCmd)
}
