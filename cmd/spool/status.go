package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spoolkit/spool/job"
)

func statusCmd(configPath *string) *cobra.Command {
	var showArtifact bool

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "List stored jobs or show one job's units",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) == 0 {
				return listJobs(cmd.Context(), app)
			}
			return showJob(cmd.Context(), app, args[0], showArtifact)
		},
	}

	cmd.Flags().BoolVar(&showArtifact, "artifact", false, "Print the aggregated artifact as stored")

	return cmd
}

func listJobs(ctx context.Context, app *App) error {
	summaries, err := app.store.ListJobs(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no jobs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tUNITS\tUPDATED\tTASK")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			s.ID, s.Status, s.UnitsDone, s.UnitsTotal,
			s.UpdatedAt.Format("2006-01-02 15:04"), truncate(s.Task, 48))
	}
	return w.Flush()
}

func showJob(ctx context.Context, app *App, id string, showArtifact bool) error {
	rec, err := app.store.GetJob(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("job:      %s\n", rec.ID)
	fmt.Printf("document: %s\n", rec.DocumentID)
	fmt.Printf("task:     %s\n", rec.Task)
	fmt.Printf("kind:     %s\n", rec.Plan.Kind)
	fmt.Printf("status:   %s\n", rec.Status)
	fmt.Printf("units:    %d/%d done\n\n", rec.CountByStatus(job.UnitDone), len(rec.Plan.Units))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UNIT\tSTATUS\tATTEMPTS\tLABEL")
	for _, u := range rec.Plan.Units {
		st := rec.UnitState(u.ID)
		if st == nil {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", u.ID, st.Status, st.Attempts, truncate(u.Label, 56))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if showArtifact {
		if content := job.Artifact(rec); content != "" {
			fmt.Printf("\n%s\n", content)
		}
	}
	return nil
}

func scoreCmd(configPath *string) *cobra.Command {
	var showItems bool

	cmd := &cobra.Command{
		Use:   "score <job-id>",
		Short: "Score an analysis job's extracted findings",
		Long: `Score deduplicates a job's extracted items and reports the signal
ratio (surviving item text versus source size) and the piecewise score
that rewards the medium-density band.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.store.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report := job.BuildReport(rec)
			fmt.Printf("units:        %d/%d done\n", report.UnitsDone, report.UnitsTotal)
			fmt.Printf("items:        %d\n", len(report.Items))
			fmt.Printf("signal ratio: %.4f\n", report.SignalRatio)
			fmt.Printf("score:        %.4f\n", report.Score)

			if showItems {
				fmt.Println()
				for _, item := range report.Items {
					if item.Attribution != "" {
						fmt.Printf("- %s (%s)\n", item.Text, item.Attribution)
						continue
					}
					fmt.Printf("- %s\n", item.Text)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showItems, "items", false, "Print the deduplicated items")

	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
