package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantrail/intrabot/journal"
)

var reportDay string

var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"journal"},
	Short:   "Summarize a day's trades from the journal",
	Long: `Print the day's closed trades and aggregate performance from the
SQLite journal.

Example:
  intrabot report --day 2024-09-02`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportDay, "day", "", "day YYYY-MM-DD (default: today)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !strings.EqualFold(cfg.Journal.Type, "sqlite") {
		return fmt.Errorf("report needs the sqlite journal, config uses %q", cfg.Journal.Type)
	}

	day := time.Now().UTC()
	if reportDay != "" {
		day, err = time.Parse("2006-01-02", reportDay)
		if err != nil {
			return fmt.Errorf("parse --day: %w", err)
		}
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	trades, err := j.ListTradesClosedBetween(dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Printf("no trades on %s\n", dayStart.Format("2006-01-02"))
		return nil
	}

	fmt.Printf("trades on %s:\n", dayStart.Format("2006-01-02"))
	for _, t := range trades {
		fmt.Printf("  %s  %-22s %-9s qty %-5d %8.2f -> %8.2f  %-13s %+10.2f\n",
			t.ExitTime.Format("15:04"), t.Symbol, t.Direction, t.Qty,
			t.EntryPrice, t.ExitPrice, t.Reason, t.RealizedPL)
	}

	s, err := j.Summarize(dayStart)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("trades: %d  wins: %d  losses: %d\n", s.Trades, s.Wins, s.Losses)
	fmt.Printf("net P&L: %+.2f  best: %+.2f  worst: %+.2f\n", s.NetPL, s.BestTrade, s.WorstPL)
	return nil
}
