// Command sweep_preview prints the deadlines the next reconciliation sweep
// would pick up, without writing anything. Useful when tuning the lookback
// window or verifying a freshly configured deadline.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	"github.com/Manchinn/cslogbook-reconciler/internal/repository"
	"github.com/Manchinn/cslogbook-reconciler/internal/service"
	"github.com/Manchinn/cslogbook-reconciler/pkg/config"
	"github.com/Manchinn/cslogbook-reconciler/pkg/database"
)

func main() {
	var (
		lookback time.Duration
		asOf     string
	)
	pflag.DurationVar(&lookback, "lookback", 24*time.Hour, "trailing sweep window")
	pflag.StringVar(&asOf, "as-of", "", "evaluate as of this RFC3339 instant instead of now")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	now := time.Now().In(time.FixedZone("ref", cfg.Reconcile.TimezoneOffsetMins*60))
	if asOf != "" {
		now, err = time.Parse(time.RFC3339, asOf)
		if err != nil {
			log.Fatalf("parse --as-of: %v", err)
		}
	}
	from := now.Add(-lookback)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := repository.NewDeadlineRepository(db)
	soft, err := repo.ListSoftCrossings(ctx, from, now)
	if err != nil {
		log.Fatalf("list soft crossings: %v", err)
	}
	hard, err := repo.ListHardCrossings(ctx, from, now)
	if err != nil {
		log.Fatalf("list hard crossings: %v", err)
	}

	fmt.Printf("Sweep preview %s .. %s\n\n", from.Format(time.RFC3339), now.Format(time.RFC3339))
	printCrossings("SOFT (due_at crossed)", soft, now)
	printCrossings("HARD (window_end crossed)", hard, now)

	if len(soft) == 0 && len(hard) == 0 {
		os.Exit(0)
	}
}

func printCrossings(title string, deadlines []models.Deadline, now time.Time) {
	fmt.Println(title)
	if len(deadlines) == 0 {
		fmt.Println("  (none)")
		fmt.Println()
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tFIELD\tWORKFLOW\tEFFECTIVE DUE\tUNSUBMITTED STATUS")
	for i := range deadlines {
		d := &deadlines[i]
		due := "-"
		if eff := d.EffectiveDue(); eff != nil {
			due = eff.Format(time.RFC3339)
		}
		status := service.ComputeDeadlineStatus(d, nil, now)
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", d.ID, d.FieldKey, d.WorkflowType, due, status)
	}
	w.Flush()
	fmt.Println()
}
