package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
)

func newSessionSubmitCmd(a *App) *cobra.Command {
	mode := modeOnly
	var with string
	var final, yes bool
	var sets []string

	cmd := &cobra.Command{
		Use:   "submit ID",
		Short: "Review and submit a session",
		Long: "Review and submit a session.\n\n" +
			"On a terminal the submit runs as prompts with a review editor. Otherwise,\n" +
			"or with --yes, the flags answer every step: --mode combine --with B merges B\n" +
			"into this session first, --set KEY=QTY[:REJECTED] edits a reviewed item and\n" +
			"--final closes the session.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var ui submitUI
			if a.interactive() && !yes {
				ui = &promptUI{out: out}
				if a.NewSubmitUI != nil {
					ui = a.NewSubmitUI(cmd)
				}
			} else {
				if !yes {
					return errors.New("not a terminal: pass --yes to submit from flags")
				}
				edits := make([]reviewEdit, 0, len(sets))
				for _, raw := range sets {
					e, err := parseReviewEdit(raw)
					if err != nil {
						return err
					}
					edits = append(edits, e)
				}
				ui = &flagUI{wantMode: mode, with: with, isFinal: final, edits: edits}
			}

			s, err := a.Backend.GetSession(ctx, args[0])
			if err != nil {
				return err
			}
			page := a.page(s)
			if err := page.Load(ctx); err != nil {
				return err
			}

			res, err := (&submitRunner{page: page, ui: ui, out: out}).run(ctx)
			if errors.Is(err, errSubmitCancelled) {
				fmt.Fprintln(out, formatter.Dim("Submit cancelled."))
				return nil
			}
			if err != nil {
				return err
			}
			if res == nil {
				return errors.New("submit finished without a result")
			}
			fmt.Fprintln(out, formatter.FormatSubmitResult(res))
			return nil
		},
	}
	cmd.Flags().Var(&submitModeFlag{value: &mode}, "mode", "only or combine")
	cmd.Flags().StringVar(&with, "with", "", "Session to merge first when --mode combine")
	cmd.Flags().BoolVar(&final, "final", false, "Close the session after this submission")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Answer from flags instead of prompting")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a reviewed item as KEY=QTY[:REJECTED] (repeatable)")
	return cmd
}
