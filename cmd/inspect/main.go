// Command inspect prints interview sessions and the decision log from a
// counselor database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/barathraj048/Ai-counsler/internal/provenance"
	"github.com/barathraj048/Ai-counsler/internal/session"
)

var (
	dbPath  string
	jsonOut bool
	last    int
	sessID  string
)

// #region commands

var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Inspect counselor sessions and decisions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List interview sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), sessions)
		}
		printSessions(cmd.OutOrStdout(), sessions)
		return nil
	},
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recorded decisions, oldest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := listDecisions(cmd.Context(), store, sessID, last)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		printDecisions(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envOr("DB_PATH", "./data/counselor.db"), "path to the counselor SQLite database")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
	decisionsCmd.Flags().StringVar(&sessID, "session", "", "only show decisions for this session")
	decisionsCmd.Flags().IntVar(&last, "last", 20, "show the last N decisions (0 = all)")
	rootCmd.AddCommand(sessionsCmd, decisionsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion commands

// #region queries

func openStore() (*session.SQLiteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database %s: %w", dbPath, err)
	}
	return session.NewSQLiteStore(dbPath)
}

// listDecisions returns the newest n entries in chronological order.
func listDecisions(ctx context.Context, store *session.SQLiteStore, sessionID string, n int) ([]provenance.Entry, error) {
	log, err := provenance.New(store.DB())
	if err != nil {
		return nil, err
	}
	entries, err := log.List(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// #endregion queries

// #region output

func printSessions(w io.Writer, sessions []*session.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return
	}
	fmt.Fprintf(w, "%-12s  %-10s  %5s  %-20s  %s\n", "Session", "Status", "Steps", "Pending", "Updated")
	fmt.Fprintf(w, "%-12s+-%-10s+-%5s+-%-20s+-%s\n", "------------", "----------", "-----", "--------------------", "--------------------")
	for _, s := range sessions {
		pending := "—"
		if s.Pending != nil {
			pending = s.Pending.ID
		}
		fmt.Fprintf(w, "%-12s  %-10s  %5d  %-20s  %s\n",
			shortID(s.ID), s.Status, s.StepCount(), pending, s.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	}
}

func printDecisions(w io.Writer, entries []provenance.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no decisions")
		return
	}
	fmt.Fprintf(w, "%-12s  %-10s  %-22s  %-24s  %s\n", "Session", "Kind", "Decision", "Reason", "Time")
	fmt.Fprintf(w, "%-12s+-%-10s+-%-22s+-%-24s+-%s\n", "------------", "----------", "----------------------", "------------------------", "--------------------")
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "—"
		}
		if len(reason) > 24 {
			reason = reason[:21] + "..."
		}
		fmt.Fprintf(w, "%-12s  %-10s  %-22s  %-24s  %s\n",
			shortID(e.SessionID), e.Kind, e.Decision, reason, e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion output
