package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/openmined/aclnotify/internal/mailer"
	"github.com/openmined/aclnotify/internal/notifier"
	"github.com/openmined/aclnotify/internal/store"
	"github.com/spf13/cobra"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleSent   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSkip   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleFail   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a single event through the notifier and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			file, _ := cmd.Flags().GetString("file")
			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			ev, err := notifier.DecodeEvent(data)
			if err != nil {
				return err
			}

			st, err := store.New(&cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			var sender mailer.Sender
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				sender = dryRunSender{}
			} else if sender, err = mailer.New(&cfg.Mail); err != nil {
				return err
			}

			summary, err := notifier.New(cfg.Notifier, st, sender, nil).Process(cmd.Context(), ev)
			if err != nil {
				return err
			}
			return renderSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringP("file", "f", "-", "Event JSON file, - for stdin")
	cmd.Flags().Bool("dry-run", false, "Log messages instead of sending them")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func renderSummary(w io.Writer, s *notifier.Summary) error {
	if s == nil {
		_, err := fmt.Fprintln(w, styleSkip.Render("event ignored: no newly granted users"))
		return err
	}

	if _, err := fmt.Fprintln(w, styleHeader.Render(fmt.Sprintf("ticket %s (%d users)", s.Ticket, len(s.Results)))); err != nil {
		return err
	}
	for _, r := range s.Results {
		var line string
		switch r.Status {
		case notifier.StatusSent:
			line = styleSent.Render(fmt.Sprintf("  %-24s sent     %s", r.User, r.Email))
		case notifier.StatusSkippedNoEmail:
			line = styleSkip.Render(fmt.Sprintf("  %-24s skipped  no email", r.User))
		default:
			line = styleFail.Render(fmt.Sprintf("  %-24s failed   %s: %s", r.User, r.Stage, r.Error))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// dryRunSender logs messages instead of delivering them.
type dryRunSender struct{}

func (dryRunSender) Name() string {
	return "dry-run"
}

func (dryRunSender) Send(_ context.Context, msg *mailer.Message) error {
	slog.Info("dry-run send", "to", msg.ToAddress, "subject", msg.Subject, "body", msg.HTMLBody)
	return nil
}
