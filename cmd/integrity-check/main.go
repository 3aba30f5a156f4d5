package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/votepulse/internal/adapter/postgres"
	"github.com/pscheid92/votepulse/internal/app"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/platform/logging"
)

const runTimeout = 2 * time.Minute

// exitFindings is returned when the cycle has flags or drift, so cron jobs can alert on it.
const exitFindings = 2

type report struct {
	CycleID    uuid.UUID                 `json:"cycleId"`
	Votes      int                       `json:"votes"`
	Skipped    int                       `json:"skipped"`
	Suspicious bool                      `json:"suspicious"`
	Patterns   []domain.ManipulationFlag `json:"patterns"`
	Consistent bool                      `json:"consistent"`
	Drift      []domain.AggregateDrift   `json:"drift"`
}

func (r report) clean() bool {
	return !r.Suspicious && r.Consistent
}

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		cycle       = flag.String("cycle", "", "Voting cycle ID to analyse")
		jsonOutput  = flag.Bool("json", false, "Print the report as JSON")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}
	cycleID, err := uuid.Parse(*cycle)
	if err != nil {
		log.Fatalf("Invalid --cycle %q: %v", *cycle, err)
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	slog.SetDefault(logging.New(os.Stderr, level, "text"))

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, *databaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	rep, err := run(ctx, postgres.NewLedger(pool), cycleID)
	if err != nil {
		log.Fatalf("Integrity check failed: %v", err)
	}

	if *jsonOutput {
		err = writeJSON(os.Stdout, rep)
	} else {
		err = writeText(os.Stdout, rep)
	}
	if err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if !rep.clean() {
		os.Exit(exitFindings)
	}
}

func run(ctx context.Context, ledger domain.Ledger, cycleID uuid.UUID) (report, error) {
	start := time.Now()

	votes, err := ledger.CycleVotes(ctx, cycleID)
	if err != nil {
		return report{}, fmt.Errorf("load cycle votes: %w", err)
	}
	detection := app.DetectManipulation(votes)

	drift, err := ledger.ReconcileCycle(ctx, cycleID)
	if err != nil {
		return report{}, fmt.Errorf("reconcile cycle: %w", err)
	}

	rep := report{
		CycleID:    cycleID,
		Votes:      len(votes),
		Skipped:    detection.Skipped,
		Suspicious: len(detection.Flags) > 0,
		Patterns:   detection.Flags,
		Consistent: len(drift) == 0,
		Drift:      drift,
	}
	if rep.Patterns == nil {
		rep.Patterns = []domain.ManipulationFlag{}
	}
	if rep.Drift == nil {
		rep.Drift = []domain.AggregateDrift{}
	}

	slog.Info("Integrity check finished",
		"cycle_id", cycleID,
		"votes", rep.Votes,
		"flags", len(rep.Patterns),
		"drifting_ideas", len(rep.Drift),
		"duration_ms", time.Since(start).Milliseconds())

	return rep, nil
}

func writeJSON(w io.Writer, rep report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, rep report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Cycle\t%s\n", rep.CycleID)
	fmt.Fprintf(tw, "Votes analysed\t%d (skipped %d)\n", rep.Votes, rep.Skipped)
	fmt.Fprintf(tw, "Suspicious\t%t\n", rep.Suspicious)
	fmt.Fprintf(tw, "Aggregates consistent\t%t\n", rep.Consistent)

	if len(rep.Patterns) > 0 {
		fmt.Fprintln(tw, "\nTYPE\tVOTER\tDETAIL")
		for _, f := range rep.Patterns {
			switch f.Kind {
			case domain.FlagCollusion:
				fmt.Fprintf(tw, "%s\t%s\t%d votes for submitter %s\n", f.Kind, f.VoterID, f.VoteCount, f.SubmitterID)
			default:
				fmt.Fprintf(tw, "%s\t%s\tat %s\n", f.Kind, f.VoterID, f.At.Format(time.RFC3339))
			}
		}
	}

	if len(rep.Drift) > 0 {
		fmt.Fprintln(tw, "\nIDEA\tSTORED\tLEDGER SUM")
		for _, d := range rep.Drift {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.IdeaID, d.Stored, d.LedgerSum)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}
