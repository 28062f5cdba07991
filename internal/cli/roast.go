package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/anime-shed/webcritic-go/internal/container"
	"github.com/anime-shed/webcritic-go/internal/factory"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/service"
	"github.com/anime-shed/webcritic-go/internal/session"
	"github.com/anime-shed/webcritic-go/internal/ui"
)

var (
	roastPlain   bool
	roastJSON    bool
	roastTimeout time.Duration
)

func newRoastCommand(opts []container.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roast [screenshot]",
		Short: "Critique a single screenshot",
		Long: `Send one screenshot (png, jpeg or gif) to the critic and print the scores
and feedback.

Examples:
  webcritic roast homepage.png
  webcritic roast --plain homepage.png
  webcritic roast --json homepage.png > critique.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoast(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&roastPlain, "plain", false, "print the score cards without the interactive spinner")
	cmd.Flags().BoolVar(&roastJSON, "json", false, "print the resulting state snapshot as JSON")
	cmd.Flags().DurationVar(&roastTimeout, "timeout", 2*time.Minute, "give up waiting after this long")

	return cmd
}

func runRoast(cmd *cobra.Command, path string, opts []container.Option) error {
	if roastPlain && roastJSON {
		return fmt.Errorf("--plain and --json cannot be combined")
	}

	logger.UseTextOutput()
	cfg, err := loadConfig("warn")
	if err != nil {
		return err
	}

	c, err := container.NewContainer(cfg, opts...)
	if err != nil {
		return err
	}
	defer closeContainer(c, cmd.ErrOrStderr())

	ctx, cancel := context.WithTimeout(cmd.Context(), roastTimeout)
	defer cancel()

	sess, err := c.Sessions().Create(ctx)
	if err != nil {
		return err
	}

	outcomes, err := submitFile(ctx, c, sess, path)
	if err != nil {
		return err
	}

	if !roastPlain && !roastJSON {
		return runInteractive(ctx, cmd, filepath.Base(path), outcomes)
	}

	outcome, waitErr := service.Await(ctx, outcomes)
	if outcome.Snapshot.SessionID == "" {
		return waitErr
	}

	out := cmd.OutOrStdout()
	if roastJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome.Snapshot); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	} else {
		fmt.Fprintln(out, ui.RenderSnapshot(outcome.Snapshot, ui.DefaultWidth))
	}
	return waitErr
}

func runInteractive(ctx context.Context, cmd *cobra.Command, label string, outcomes <-chan service.Outcome) error {
	program := tea.NewProgram(ui.NewRoastModel(label, outcomes),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	if m, ok := final.(ui.RoastModel); ok {
		if outcome, done := m.Outcome(); done {
			return outcome.Err
		}
	}
	return nil
}

// submitFile loads a screenshot through the local source and starts a critique
func submitFile(ctx context.Context, c *container.Container, sess *session.Session, path string) (<-chan service.Outcome, error) {
	src, ok := c.Sources()[factory.LocalStorage]
	if !ok {
		return nil, fmt.Errorf("local screenshots are not configured")
	}

	img, err := src.FetchImage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c.CritiqueService().SubmitImage(ctx, sess, img)
}
