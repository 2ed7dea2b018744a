package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/openmined/aclnotify/internal/store"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load ticket and user fixtures into the SQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			file, _ := cmd.Flags().GetString("file")
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := store.OpenSQL(&cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := store.Seed(cmd.Context(), st, f)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %s records into %s\n", humanize.Comma(int64(n)), cfg.Store.Driver)
			return err
		},
	}

	cmd.Flags().StringP("file", "f", "", "YAML fixtures file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
