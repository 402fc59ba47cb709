package cli

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opteee-ai/opteee/internal/logging"
	"github.com/opteee-ai/opteee/internal/vectorstore"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Package and retrieve the prebuilt vector store",
	}
	cmd.AddCommand(newStorePackCmd())
	cmd.AddCommand(newStoreFetchCmd())
	cmd.AddCommand(newStoreCheckCmd())
	return cmd
}

func newStorePackCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Create a tar.gz archive of the vector store for hosting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}
			if err := vectorstore.Pack(cfg.StoreDir(), out); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"created %s\nupload it and set store.url to its direct download link\n", out)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "vector_store.tar.gz", "Output archive path")
	return cmd
}

func newStoreFetchCmd() *cobra.Command {
	var dest string
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and extract the vector store archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}
			if cfg.Store.URL == "" {
				return fmt.Errorf("store.url is not configured; set it in %s", cfg.ConfigPath())
			}

			storeDir := filepath.Join(dest, cfg.StoreDir())
			if !force {
				if err := vectorstore.Check(storeDir); err == nil {
					logging.Logger().Info("vector store already present", "dir", storeDir)
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "vector store already exists, nothing to do")
					return err
				}
			}

			if err := vectorstore.Fetch(cmd.Context(), http.DefaultClient, cfg.Store.URL, dest); err != nil {
				return err
			}
			if err := vectorstore.Check(storeDir); err != nil {
				return fmt.Errorf("downloaded archive is incomplete: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "vector store extracted to %s\n", storeDir)
			return err
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", ".", "Directory to extract into")
	cmd.Flags().BoolVar(&force, "force", false, "Re-download even if the store already exists")
	return cmd
}

func newStoreCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the vector store directory is complete",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}
			if err := vectorstore.Check(cfg.StoreDir()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "vector store at %s is complete\n", cfg.StoreDir())
			return err
		},
	}
}
