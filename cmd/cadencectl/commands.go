package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/cadence"
	"outreach_backend/internal/cycle"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/scheduler"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// --- cycle ---

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one full cadence cycle in this process",
	Long: `Run import, reply reconciliation, sent-mail reconciliation and
proposal creation once. A failing step is reported and the next one still runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		report := e.outreach.Cycle.Run(cmd.Context())
		writeReport(os.Stdout, report)
		if n := report.Failed(); n > 0 {
			printWarning("%d step(s) failed", n)
		} else {
			printSuccess("cycle completed")
		}
		return nil
	},
}

func writeReport(w io.Writer, r cycle.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STEP\tDURATION\tRESULT")
	for _, s := range r.Steps {
		result := "ok"
		if s.Error != "" {
			result = "error: " + s.Error
		} else if s.Summary != nil {
			if b, err := json.Marshal(s.Summary); err == nil {
				result = string(b)
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Duration.Round(time.Millisecond), result)
	}
	_ = tw.Flush()
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify [lead]",
	Short: "Show the due cohorts, or explain the decision for one lead",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		now := time.Now()
		if len(args) == 1 {
			lead, err := findLead(ctx, e.outreach.Leads, args[0])
			if err != nil {
				return err
			}
			writeDecision(os.Stdout, lead, cadence.Decide(lead, now))
			return nil
		}

		cohorts, err := cadence.NewResolver(e.outreach.Leads, func() time.Time { return now }).Cohorts(ctx)
		if err != nil {
			return err
		}
		writeCohorts(os.Stdout, cohorts)
		return nil
	},
}

func writeCohorts(w io.Writer, cohorts cadence.Cohorts) {
	keys := cohorts.Keys()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(w, "no leads are due")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BATCH\tSTAGE\tINTEREST\tLEADS")
	for _, k := range keys {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", k.BatchID(), k.Stage, k.Interest, len(cohorts[k]))
	}
	_ = tw.Flush()
}

func writeDecision(w io.Writer, lead domain.Lead, d cadence.Decision) {
	printStatusTo(w, "Lead", "%s (%s)", lead.Email, lead.Status)
	printStatusTo(w, "Stage", "%d", lead.Metadata.SequenceStage)
	printStatusTo(w, "Eligible", "%t", d.Eligible)
	printStatusTo(w, "Reason", "%s", d.Reason)
	if d.ElapsedDays >= 0 {
		printStatusTo(w, "Days since contact", "%d", d.ElapsedDays)
	}
	if d.Eligible {
		printStatusTo(w, "Next stage", "%d", d.NextStage)
	}
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset <lead> --stage N",
	Short: "Put a lead back at a cadence stage and reactivate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetInt("stage")
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		lead, err := findLead(ctx, e.outreach.Leads, args[0])
		if err != nil {
			return err
		}
		resp, err := e.outreach.LeadService.Reset(ctx, lead.ID, stage)
		if err != nil {
			return err
		}
		printSuccess("%s reset to stage %d (%s)", resp.Email, resp.SequenceStage, resp.Status)
		return nil
	},
}

// --- draft ---

var draftCmd = &cobra.Command{
	Use:   "draft <lead>",
	Short: "Write a personalized draft for the lead's next stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		lead, err := findLead(ctx, e.outreach.Leads, args[0])
		if err != nil {
			return err
		}
		resp, err := e.outreach.LeadService.GenerateDraft(ctx, lead.ID)
		if err != nil {
			return err
		}
		printSuccess("draft %s created for stage %d", resp.DraftID, resp.Stage)
		printStatus("Subject", "%s", resp.Subject)
		return nil
	},
}

// --- batches ---

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Inspect and resolve batch proposals",
}

var batchesShowCmd = &cobra.Command{
	Use:   "show [batch-id]",
	Short: "List open proposals, or print one as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if len(args) == 1 {
			p, err := e.outreach.Batches.Get(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		proposals, err := e.outreach.Batches.List(ctx)
		if err != nil {
			return err
		}
		writeProposals(os.Stdout, proposals)
		return nil
	},
}

var batchesCancelCmd = &cobra.Command{
	Use:   "cancel <batch-id>",
	Short: "Queue a cancel for a proposal",
	Long: `Queue a cancel for a proposal. The worker applies it like a Slack
action, so it is rejected when the proposal changed after --version.
Without --version the current version is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt64("version")
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if version == 0 {
			p, err := e.outreach.Batches.Get(ctx, args[0])
			if err != nil {
				return err
			}
			version = p.Version
		}

		queue, err := scheduler.NewClient(e.cfg, e.log)
		if err != nil {
			return err
		}
		defer func() { _ = queue.Close() }()

		if err := queue.EnqueueAction(ctx, cancelAction(args[0], version)); err != nil {
			return err
		}
		printSuccess("cancel queued for %s (version %d)", args[0], version)
		return nil
	},
}

func cancelAction(batchID string, version int64) batches.Action {
	return batches.Action{
		Kind:    batches.ActionCancel,
		BatchID: batchID,
		Version: version,
		User:    "cadencectl",
	}
}

func writeProposals(w io.Writer, proposals []batches.Proposal) {
	if len(proposals) == 0 {
		_, _ = fmt.Fprintln(w, "no open proposals")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BATCH\tVERSION\tSTATUS\tLEADS\tSUBJECT")
	for _, p := range proposals {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", p.ID, p.Version, p.Status, p.LeadCount, p.Content.Subject)
	}
	_ = tw.Flush()
}

func init() {
	resetCmd.Flags().Int("stage", 0, "stage to reset to (0-4)")
	_ = resetCmd.MarkFlagRequired("stage")

	batchesCancelCmd.Flags().Int64("version", 0, "proposal version the cancel applies to")
	batchesCmd.AddCommand(batchesShowCmd, batchesCancelCmd)
}

// leadFinder resolves a lead by id or email.
type leadFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetByEmail(ctx context.Context, email string) (domain.Lead, error)
}

// findLead accepts a lead UUID or an email address.
func findLead(ctx context.Context, store leadFinder, ref string) (domain.Lead, error) {
	ref = strings.TrimSpace(ref)
	var (
		lead domain.Lead
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		lead, err = store.GetByID(ctx, id)
	} else {
		lead, err = store.GetByEmail(ctx, domain.NormalizeEmail(ref))
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, fmt.Errorf("no lead matches %q", ref)
	}
	return lead, err
}
