package main

import (
	"fmt"
	"os"

	"compliance-training/internal/infra/stripe"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func pricesCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Print the active price to course mapping as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = os.Getenv("PRICE_MAP_PATH")
			}
			catalog, err := stripe.LoadPriceCatalog(path)
			if err != nil {
				return err
			}

			doc := struct {
				Prices []stripe.PriceEntry `yaml:"prices"`
			}{Prices: catalog.Entries()}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode price map: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "price map file (defaults to PRICE_MAP_PATH, then the built-in table)")
	return cmd
}
