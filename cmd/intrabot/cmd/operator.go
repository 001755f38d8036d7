package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantrail/intrabot/risk"
)

// Operator commands act on the persisted governor state. A running
// session picks the change up on its next tick; they also work with no
// session running.

var killReason string

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Activate the kill switch",
	Long: `Halt all new entries until 'intrabot resume'. The kill switch is
persisted and survives restarts and session resets. Open positions are
not touched; use 'intrabot close' for that.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGovernor(func(gov *risk.Governor) error {
			gov.ActivateKillSwitch(killReason)
			fmt.Printf("kill switch active: %s\n", killReason)
			return nil
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Deactivate the kill switch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGovernor(func(gov *risk.Governor) error {
			gov.DeactivateKillSwitch("operator")
			fmt.Println("kill switch cleared")
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset risk counters for a new session",
	Long: `Clear the day's counters and the circuit breaker at a session
boundary. The kill switch survives a reset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGovernor(func(gov *risk.Governor) error {
			if err := gov.ResetForNewSession(time.Now().UTC()); err != nil {
				return err
			}
			fmt.Println("session counters reset")
			return nil
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Request a manual close of the open position",
	Long: `Flag the open position for closure. The running session closes it
on its next tick and reports it through the normal close path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGovernor(func(gov *risk.Governor) error {
			gov.RequestManualClose()
			fmt.Println("manual close requested")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the governor's standing state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGovernor(func(gov *risk.Governor) error {
			st := gov.Snapshot()
			fmt.Printf("day:                %s\n", st.Day)
			fmt.Printf("daily P&L:          %.2f\n", st.DailyPnL)
			fmt.Printf("trades:             %d (%d won / %d lost)\n", st.TradeCount, st.Winners, st.Losers)
			fmt.Printf("consecutive losses: %d\n", st.ConsecutiveLosses)
			fmt.Printf("capital deployed:   %.2f\n", st.CapitalDeployed)
			fmt.Printf("breaker tripped:    %v\n", st.BreakerTripped)
			fmt.Printf("kill switch:        %v", st.KillSwitch)
			if st.KillSwitch && st.KillReason != "" {
				fmt.Printf(" (%s)", st.KillReason)
			}
			fmt.Println()
			fmt.Printf("close requested:    %v\n", st.CloseRequested)
			return nil
		})
	},
}

func init() {
	killCmd.Flags().StringVarP(&killReason, "reason", "r", "operator stop", "why trading is halted")
	rootCmd.AddCommand(killCmd, resumeCmd, resetCmd, closeCmd, statusCmd)
}

func withGovernor(fn func(*risk.Governor) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := risk.NewSQLiteStore(cfg.Account.RiskStatePath)
	if err != nil {
		return fmt.Errorf("open risk state: %w", err)
	}
	defer store.Close()

	gov := risk.NewGovernor(cfg.Risk, store, time.Now().UTC(), quietLogger())
	if gov.Degraded() {
		return fmt.Errorf("risk state unreadable at %s", cfg.Account.RiskStatePath)
	}
	return fn(gov)
}

func quietLogger() zerolog.Logger {
	if verbose {
		return newLogger()
	}
	return zerolog.Nop()
}
