package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

func newShipmentCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipment",
		Short: "Record inbound shipments and follow their receiving",
	}
	cmd.AddCommand(
		newShipmentAddCmd(a),
		newShipmentShowCmd(a),
	)
	return cmd
}

func newShipmentAddCmd(a *App) *cobra.Command {
	var storeID, number, supplier string
	var lines []string

	cmd := &cobra.Command{
		Use:   "add ID",
		Short: "Add or replace a shipment and its expected lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Admin == nil {
				return errNoCatalogAdmin
			}
			ship := &domain.Shipment{
				ID:           args[0],
				CompanyID:    a.CompanyID,
				StoreID:      storeOr(a, storeID),
				Number:       number,
				SupplierName: supplier,
			}
			if ship.Number == "" {
				ship.Number = ship.ID
			}
			for _, raw := range lines {
				l, err := parseShipmentLine(raw)
				if err != nil {
					return err
				}
				ship.Lines = append(ship.Lines, l)
			}
			if err := a.Admin.UpsertShipment(cmd.Context(), ship); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved shipment %s with %d lines\n", ship.Number, len(ship.Lines))
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Receiving store (defaults to STORECOUNT_STORE_ID)")
	cmd.Flags().StringVar(&number, "number", "", "Shipment number shown to staff (defaults to ID)")
	cmd.Flags().StringVar(&supplier, "supplier", "", "Supplier name")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "Expected line KEY=QTY[@COST] (repeatable)")
	return cmd
}

func newShipmentShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show shipped against received quantities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.Backend.ShipmentProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatShipmentProgress(p, nil))
			return nil
		},
	}
}
