package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/anime-shed/webcritic-go/internal/container"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/service"
	"github.com/anime-shed/webcritic-go/internal/session"
	"github.com/anime-shed/webcritic-go/internal/ui"
)

var (
	watchSettle time.Duration
)

// screenshotExts are the file types the decoder understands
var screenshotExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

func newWatchCommand(opts []container.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Roast every screenshot dropped into a directory",
		Long: `Monitor a directory and critique each new png, jpeg or gif written to it,
one at a time, in a single session so repeated feedback is flagged.
Press Ctrl+C to stop watching.

Examples:
  webcritic watch ./screenshots
  webcritic watch --settle 1s ~/Desktop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().DurationVar(&watchSettle, "settle", 500*time.Millisecond, "wait this long after the last write before roasting a file")

	return cmd
}

func runWatch(cmd *cobra.Command, dir string, opts []container.Option) error {
	if err := validateWatchDir(dir); err != nil {
		return fmt.Errorf("invalid directory: %w", err)
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

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close watcher: %v\n", err)
		}
	}()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := c.Sessions().Create(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for screenshots. Press Ctrl+C to stop...\n", dir)
	return runWatchLoop(ctx, watcher, newWatchRoaster(c, sess, cmd.OutOrStdout()), watchSettle)
}

// watchRoaster critiques files one after another in one session
type watchRoaster struct {
	c    *container.Container
	sess *session.Session
	out  io.Writer
}

func newWatchRoaster(c *container.Container, sess *session.Session, out io.Writer) *watchRoaster {
	return &watchRoaster{c: c, sess: sess, out: out}
}

func (w *watchRoaster) roast(ctx context.Context, path string) {
	fmt.Fprintf(w.out, "== %s\n", filepath.Base(path))

	outcomes, err := submitFile(ctx, w.c, w.sess, path)
	if err != nil {
		fmt.Fprintf(w.out, "error: %v\n\n", err)
		return
	}

	outcome, err := service.Await(ctx, outcomes)
	if outcome.Snapshot.SessionID == "" {
		fmt.Fprintf(w.out, "error: %v\n\n", err)
		return
	}
	fmt.Fprintln(w.out, ui.RenderPlain(outcome.Snapshot))
}

// runWatchLoop debounces writes per file and roasts each settled file in order
func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, r *watchRoaster, settle time.Duration) error {
	pending := make(map[string]time.Time)
	tick := settle / 2
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if isScreenshotEvent(event) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.WithError(err).Warn("Watcher error")

		case now := <-ticker.C:
			for _, path := range settledFiles(pending, now, settle) {
				delete(pending, path)
				r.roast(ctx, path)
			}
		}
	}
}

func isScreenshotEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return screenshotExts[strings.ToLower(filepath.Ext(event.Name))]
}

// settledFiles returns files untouched for at least settle, oldest first
func settledFiles(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= settle {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return pending[ready[i]].Before(pending[ready[j]])
	})
	return ready
}

// validateWatchDir validates that a path is an existing directory
func validateWatchDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty directory path")
	}

	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
