package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

var errNoCatalogAdmin = errors.New("the catalog can only be edited on the local backend")

func newProductCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Search and maintain the product catalog",
	}
	cmd.AddCommand(
		newProductSearchCmd(a),
		newProductAddCmd(a),
		newProductStockCmd(a),
	)
	return cmd
}

func newProductSearchCmd(a *App) *cobra.Command {
	var storeID string
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find products by name, SKU or barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := a.Backend.SearchProducts(cmd.Context(), storeOr(a, storeID), args[0], limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProducts(products))
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Store to search (defaults to STORECOUNT_STORE_ID)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results")
	return cmd
}

func newProductAddCmd(a *App) *cobra.Command {
	var id, variant, name, variantName, sku, barcode, cost string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Admin == nil {
				return errNoCatalogAdmin
			}
			unitCost, err := decimal.NewFromString(cost)
			if err != nil {
				return fmt.Errorf("invalid --cost %q: %w", cost, err)
			}
			p := &domain.Product{
				Key:         domain.ItemKey{ProductID: id, VariantID: variant},
				Name:        name,
				VariantName: variantName,
				SKU:         sku,
				Barcode:     barcode,
				UnitCost:    unitCost,
			}
			if err := a.Admin.UpsertProduct(cmd.Context(), a.CompanyID, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved product %s (%s)\n", p.Key, p.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Product ID")
	cmd.Flags().StringVar(&variant, "variant", "", "Variant ID")
	cmd.Flags().StringVar(&name, "name", "", "Product name")
	cmd.Flags().StringVar(&variantName, "variant-name", "", "Variant name")
	cmd.Flags().StringVar(&sku, "sku", "", "SKU")
	cmd.Flags().StringVar(&barcode, "barcode", "", "Barcode")
	cmd.Flags().StringVar(&cost, "cost", "0", "Unit cost")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProductStockCmd(a *App) *cobra.Command {
	var storeID string
	var qty int

	cmd := &cobra.Command{
		Use:   "stock KEY",
		Short: "Set the on-hand quantity of PRODUCT or PRODUCT/VARIANT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Admin == nil {
				return errNoCatalogAdmin
			}
			key, err := parseItemKey(args[0])
			if err != nil {
				return err
			}
			if qty < 0 {
				return fmt.Errorf("--qty must be at least 0")
			}
			store := storeOr(a, storeID)
			if err := a.Admin.SetStock(cmd.Context(), store, key, qty); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stock of %s at %s set to %d\n", key, store, qty)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Store ID (defaults to STORECOUNT_STORE_ID)")
	cmd.Flags().IntVar(&qty, "qty", 0, "On-hand quantity")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newStoreCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Maintain stores",
	}
	var name string
	add := &cobra.Command{
		Use:   "add ID",
		Short: "Add or rename a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Admin == nil {
				return errNoCatalogAdmin
			}
			s := &domain.Store{ID: args[0], CompanyID: a.CompanyID, Name: name}
			if s.Name == "" {
				s.Name = s.ID
			}
			if err := a.Admin.UpsertStore(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved store %s (%s)\n", s.ID, s.Name)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Store name")
	cmd.AddCommand(add)
	return cmd
}
