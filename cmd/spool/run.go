package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spoolkit/spool/job"
	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/source"
)

func runCmd(configPath *string) *cobra.Command {
	var (
		task        string
		kind        string
		url         string
		targetSize  int
		constraints []string
		unitsExpr   string
	)

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Plan and run a transformation job",
		Long: `Run plans a new job and processes its units in order.

Analysis jobs read source text from file globs or a URL and extract
findings from it. Generative jobs write a document from the task alone.
The finished artifact is printed to stdout; progress goes to stderr.`,
		Example: `  spool run --task "Extract factual claims" notes/**/*.md
  spool run --task "Summarize the argument" --url https://example.com/essay
  spool run --kind generative --task "A field guide to tidepools" --target-size 4000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			jobKind, err := resolveKind(kind, len(args) > 0 || url != "")
			if err != nil {
				return err
			}

			sel, err := job.ParseSelection(unitsExpr)
			if err != nil {
				return err
			}

			req := job.StartRequest{
				Task:            task,
				Kind:            jobKind,
				TargetTotalSize: targetSize,
				Constraints:     constraints,
				Selection:       sel,
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if jobKind == plan.KindAnalysis {
				doc, err := loadSource(ctx, app, args, url)
				if err != nil {
					return err
				}
				req.DocumentID = doc.ID
				req.SourceText = doc.Text
			} else {
				req.DocumentID = task
			}

			rec, err := app.runner.Start(ctx, req)
			if rec != nil {
				fmt.Fprintf(os.Stderr, "job %s\n", rec.ID)
			}
			return finishRun(rec, err)
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "What to do with the document (required)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Job kind: analysis or generative (default inferred from inputs)")
	cmd.Flags().StringVar(&url, "url", "", "Fetch the source document from a URL")
	cmd.Flags().IntVar(&targetSize, "target-size", 0, "Target output size in words (generative jobs)")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, "Constraint applied to every unit (repeatable)")
	cmd.Flags().StringVar(&unitsExpr, "units", "all", "Units to process: all, first-half, second-half, first-third, or a comma list of IDs")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

func resumeCmd(configPath *string) *cobra.Command {
	var unitsExpr string

	cmd := &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Resume a stored job where it stopped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			sel, err := job.ParseSelection(unitsExpr)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rec, err := app.runner.Resume(ctx, args[0], sel)
			return finishRun(rec, err)
		},
	}

	cmd.Flags().StringVar(&unitsExpr, "units", "remaining", "Units to process: remaining, all, first-half, second-half, first-third, or a comma list of IDs")

	return cmd
}

// finishRun prints the artifact when the run produced one and maps
// known run errors onto short messages.
func finishRun(rec *job.Record, err error) error {
	if rec != nil {
		if content := job.Artifact(rec); content != "" {
			fmt.Println(content)
		}
	}
	if err == nil {
		return nil
	}
	if rec != nil && errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupted; resume with: spool resume", rec.ID)
	}
	return err
}

func resolveKind(flag string, hasSource bool) (plan.Kind, error) {
	switch flag {
	case "":
		if hasSource {
			return plan.KindAnalysis, nil
		}
		return plan.KindGenerative, nil
	case string(plan.KindAnalysis):
		return plan.KindAnalysis, nil
	case string(plan.KindGenerative):
		return plan.KindGenerative, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want analysis or generative)", flag)
	}
}

// loadSource assembles the job's source document from file globs or a
// URL. Multiple files are concatenated in glob order with title headers.
func loadSource(ctx context.Context, app *App, patterns []string, url string) (*source.Document, error) {
	if url != "" {
		if len(patterns) > 0 {
			return nil, errors.New("pass file globs or --url, not both")
		}
		if err := source.ValidateRemoteURL(url); err != nil {
			return nil, err
		}
		return source.NewFetcher(source.WithLogger(app.logger)).Fetch(ctx, url)
	}
	if len(patterns) == 0 {
		return nil, errors.New("analysis jobs need source files or --url")
	}

	paths, err := source.ResolveGlobs(patterns)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %s", strings.Join(patterns, " "))
	}

	docs := make([]*source.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := source.LoadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 1 {
		return docs[0], nil
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "# %s\n\n%s", doc.Title, strings.TrimSpace(doc.Text))
	}
	return &source.Document{
		ID:    docs[0].ID,
		Title: fmt.Sprintf("%s and %d more", docs[0].Title, len(docs)-1),
		Text:  sb.String(),
	}, nil
}
