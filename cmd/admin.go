package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/store"
	"github.com/spf13/cobra"
)

var (
	adminPassword string
	adminForce    bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an admin account, or reset its password with --force",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		if adminPassword == "" {
			return errors.New("missing parameter password")
		}

		hash, err := httpx.HashPassword(adminPassword)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		err = st.RunTransaction(cmd.Context(), func(ctx context.Context, tx store.Tx) error {
			path := model.AdminPath(username)

			existing := model.Admin{}
			err := tx.Get(path, &existing)
			switch {
			case err == nil && !adminForce:
				return fmt.Errorf("admin %q already exists", username)
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}

			created := existing.Created
			if created.IsZero() {
				created = time.Now()
			}
			return tx.Set(path, model.Admin{
				ID:           username,
				PasswordHash: hash,
				Created:      created,
			})
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "admin %s saved\n", username)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "account password")
	adminCreateCmd.Flags().BoolVar(&adminForce, "force", false, "overwrite an existing account")
	adminCmd.AddCommand(adminCreateCmd)
}
