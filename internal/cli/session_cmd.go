package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/export"
)

func newSessionCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, fill, reconcile and submit sessions",
	}
	cmd.AddCommand(
		newSessionCreateCmd(a),
		newSessionJoinCmd(a),
		newSessionListCmd(a),
		newSessionShowCmd(a),
		newSessionItemsCmd(a),
		newSessionAddCmd(a),
		newSessionCompareCmd(a),
		newSessionMergeCmd(a),
		newSessionHistoryCmd(a),
		newSessionSubmitCmd(a),
		newSessionExportCmd(a),
	)
	return cmd
}

func newSessionCreateCmd(a *App) *cobra.Command {
	var storeID, shipment, name string
	sessionType := domain.SessionCounting

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new counting or receiving session",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.CreateSessionRequest{
				CompanyID: a.CompanyID,
				StoreID:   storeOr(a, storeID),
				UserID:    a.UserID,
				Type:      sessionType,
				Name:      name,
			}
			if req.StoreID == "" {
				return errors.New("--store is required")
			}
			if shipment != "" {
				req.ShipmentID = &shipment
			}
			s, err := a.Backend.CreateSession(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSession(s))
			return nil
		},
	}
	cmd.Flags().Var(&sessionTypeFlag{value: &sessionType}, "type", "Session type (counting or receiving)")
	cmd.Flags().StringVar(&storeID, "store", "", "Store ID (defaults to STORECOUNT_STORE_ID)")
	cmd.Flags().StringVar(&shipment, "shipment", "", "Shipment the session receives")
	cmd.Flags().StringVar(&name, "name", "", "Session name")
	return cmd
}

func newSessionJoinCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "join ID",
		Short: "Join a session as the current user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.Backend.JoinSession(cmd.Context(), args[0], a.UserID)
			if err != nil {
				return err
			}
			if res.AlreadyJoined {
				fmt.Fprintf(cmd.OutOrStdout(), "Already a member of %s\n", res.SessionID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined %s (member %s)\n", res.SessionID, res.MemberID)
			return nil
		},
	}
}

func newSessionListCmd(a *App) *cobra.Command {
	var storeID, shipment string
	var sessionType domain.SessionType
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := app.SessionFilter{
				CompanyID:  a.CompanyID,
				StoreID:    storeOr(a, storeID),
				Type:       sessionType,
				ActiveOnly: !all,
			}
			if shipment != "" {
				filter.ShipmentID = &shipment
			}
			sessions, err := a.Backend.ListSessions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSessionList(sessions))
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Filter by store")
	cmd.Flags().Var(&sessionTypeFlag{value: &sessionType}, "type", "Filter by type (counting or receiving)")
	cmd.Flags().StringVar(&shipment, "shipment", "", "Filter by shipment")
	cmd.Flags().BoolVar(&all, "all", false, "Include closed sessions")
	return cmd
}

func newSessionShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a session, and its shipment's expected lines when it receives one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.Backend.GetSession(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSession(s))
			if s.ShipmentID == nil || s.Type != domain.SessionReceiving {
				return nil
			}

			progress, err := a.Backend.ShipmentProgress(ctx, *s.ShipmentID)
			if err != nil {
				if domain.IsCode(err, domain.CodeNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("shipment "+*s.ShipmentID+" has no expected lines on record"))
					return nil
				}
				return err
			}
			var counting map[domain.ItemKey]int
			if s.IsActive {
				res, err := a.Backend.GetItems(ctx, s.ID, a.UserID)
				if err != nil {
					return err
				}
				counting = make(map[domain.ItemKey]int, len(res.Items))
				for _, it := range res.Items {
					counting[it.Key] = it.TotalQuantity
				}
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatShipmentProgress(progress, counting))
			return nil
		},
	}
}

func newSessionItemsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "items ID",
		Short: "Show what every member has saved so far",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.Backend.GetItems(cmd.Context(), args[0], a.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatItems(res))
			return nil
		},
	}
}

func newSessionAddCmd(a *App) *cobra.Command {
	var product, variant string
	var qty, rejected int
	var entries []string

	cmd := &cobra.Command{
		Use:   "add ID",
		Short: "Stage items and save them to a session in one batch",
		Long: "Stage items and save them to a session in one batch.\n\n" +
			"Use --product/--qty for a single item or repeat --item KEY=QTY[:REJECTED]\n" +
			"where KEY is PRODUCT or PRODUCT/VARIANT.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.Backend.GetSession(ctx, args[0])
			if err != nil {
				return err
			}
			page := a.page(s)

			if product != "" {
				if _, err := page.Stage(domain.ItemInput{ProductID: product, VariantID: variant, Quantity: qty, QuantityRejected: rejected}); err != nil {
					return err
				}
			}
			for _, raw := range entries {
				e, err := parseReviewEdit(raw)
				if err != nil {
					return err
				}
				in := domain.ItemInput{ProductID: e.Key.ProductID, VariantID: e.Key.VariantID, Quantity: e.Quantity}
				if e.Rejected != nil {
					in.QuantityRejected = *e.Rejected
				}
				if _, err := page.Stage(in); err != nil {
					return err
				}
			}
			staged := len(page.Staged())
			if err := page.Save(ctx); err != nil {
				return err
			}
			totals := page.Aggregate().Totals()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d items to %s (%d products, %d units)\n",
				staged, s.Name, totals.TotalProducts, totals.TotalQuantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "Product ID")
	cmd.Flags().StringVar(&variant, "variant", "", "Variant ID")
	cmd.Flags().IntVar(&qty, "qty", 0, "Quantity")
	cmd.Flags().IntVar(&rejected, "rejected", 0, "Rejected quantity")
	cmd.Flags().StringArrayVar(&entries, "item", nil, "Item as KEY=QTY[:REJECTED] (repeatable)")
	return cmd
}

func newSessionCompareCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "compare A B",
		Short: "Compare two sessions product by product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.Backend.CompareSessions(cmd.Context(), args[0], args[1], a.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatComparison(res))
			return nil
		},
	}
}

func newSessionMergeCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "merge TARGET SOURCE",
		Short: "Copy SOURCE's items into TARGET and close SOURCE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, err := a.Backend.GetSession(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := mergeCoordinator(a).Merge(ctx, target, args[1], a.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatMergeOutcome(out))
			return nil
		},
	}
}

func newSessionHistoryCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show the merges and submissions of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.Backend.MergeHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			subs, err := a.Backend.ListSubmissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Header("Merges"))
			fmt.Fprint(out, formatter.FormatMergeHistory(records))
			fmt.Fprintln(out)
			fmt.Fprintln(out, formatter.Header("Submissions"))
			fmt.Fprint(out, formatter.FormatSubmissionHistory(subs))
			return nil
		},
	}
}

func newSessionExportCmd(a *App) *cobra.Command {
	var out, compareWith string

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a session's items to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			report, err := buildReport(ctx, a, args[0], compareWith)
			if err != nil {
				return err
			}
			if err := export.SaveXLSX(out, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items to %s\n", len(report.Items.Items), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (.xlsx)")
	cmd.Flags().StringVar(&compareWith, "compare", "", "Add a comparison sheet against this session")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func buildReport(ctx context.Context, a *App, sessionID, compareWith string) (export.Report, error) {
	s, err := a.Backend.GetSession(ctx, sessionID)
	if err != nil {
		return export.Report{}, err
	}
	items, err := a.Backend.GetItems(ctx, sessionID, a.UserID)
	if err != nil {
		return export.Report{}, err
	}
	report := export.Report{Session: s, Items: items}
	if compareWith != "" {
		if report.Comparison, err = a.Backend.CompareSessions(ctx, sessionID, compareWith, a.UserID); err != nil {
			return export.Report{}, err
		}
	}
	return report, nil
}

func storeOr(a *App, storeID string) string {
	if storeID != "" {
		return storeID
	}
	return a.StoreID
}
