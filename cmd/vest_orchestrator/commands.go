package main

import (
	"context"
	"fmt"
	"os"

	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withSession bootstraps the app, opens the session and runs fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app, sess *session.Session) error) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, a, sess)
}

// outcomeResult prints the outcome and turns a failure into the exit error.
func outcomeResult(outcome entity.TxOutcome) error {
	if err := printJSON(outcome); err != nil {
		return err
	}
	if !outcome.Success {
		return fmt.Errorf("%s failed: %s", outcome.Kind, outcome.Error)
	}
	return nil
}

var (
	sideFlag     string
	referralFlag uint64
	childFlag    string
	tierFlag     int
)

func init() {
	rootCmd.AddCommand(syncCmd, slotsCmd, feesCmd, approveCmd, joinCmd, hideCmd)
	approveCmd.AddCommand(approveEntryCmd, approveHiddenCmd)

	feesCmd.Flags().IntVar(&tierFlag, "tier", 1, "hidden slot tier (1-3)")
	approveHiddenCmd.Flags().StringVar(&sideFlag, "side", "left", "side of the next hidden slot")
	joinCmd.Flags().StringVar(&sideFlag, "side", "left", "placement side under the referrer")
	joinCmd.Flags().Uint64Var(&referralFlag, "referral", 0, "referrer tree index")
	_ = joinCmd.MarkFlagRequired("referral")
	hideCmd.Flags().StringVar(&sideFlag, "side", "left", "side of the hidden slot")
	hideCmd.Flags().StringVar(&childFlag, "child", "", "wallet address to place in the slot")
	_ = hideCmd.MarkFlagRequired("child")
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Read the membership snapshot of the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			if err := a.refresher.Resync(ctx, sess); err != nil {
				return err
			}
			snap := sess.State.Snapshot()
			if err := snap.DegradedErr(); err != nil {
				fmt.Fprintln(os.Stderr, "warning:", err)
			}
			return printJSON(snap)
		})
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Show the hidden-slot schedule, activation window and hidden children",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			if err := a.refresher.Resync(ctx, sess); err != nil {
				return err
			}
			snap := sess.State.Snapshot()
			if !snap.Registered() {
				return entity.NewError(entity.KindNotRegistered, "account %s is not a member", sess.Account.Hex())
			}
			view := sess.State.HiddenSlots()
			if view == nil {
				return entity.NewError(entity.KindRemoteCallFailed, "hidden slot schedule unavailable")
			}
			return printJSON(view)
		})
	},
}

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Show the fee breakdown of a hidden-slot tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			breakdown, err := a.slots.TierFees(ctx, sess, tierFlag)
			if err != nil {
				return err
			}
			return printJSON(breakdown)
		})
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve token spending by the membership contract",
}

var approveEntryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Approve exactly the entry amount",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			return outcomeResult(a.orchestrator.ApproveEntry(ctx, sess))
		})
	},
}

var approveHiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "Approve the price of the next hidden slot on a side",
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := entity.ParseSide(sideFlag)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			return outcomeResult(a.orchestrator.ApproveHiddenSlot(ctx, sess, side))
		})
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the tree under a referrer",
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := entity.ParseSide(sideFlag)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			return outcomeResult(a.orchestrator.Join(ctx, sess, referralFlag, side))
		})
	},
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Open a hidden slot for a wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := entity.ParseSide(sideFlag)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, a *app, sess *session.Session) error {
			return outcomeResult(a.orchestrator.CreateHiddenSlot(ctx, sess, childFlag, side))
		})
	},
}
