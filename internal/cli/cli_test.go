package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/anime-shed/webcritic-go/internal/container"
	"github.com/anime-shed/webcritic-go/pkg/models"
)

type cannedCritic struct {
	reply string
}

func (c cannedCritic) Critique(context.Context, image.Image) (string, error) {
	return c.reply, nil
}

const cannedReply = "Design: 4\nUsability: 6\nOriginality: 2\nOverall: 4\nFeedback: The carousel is a hostage situation."

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return path
}

func execute(t *testing.T, reply string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("1.2.3", "abc123", "2026-01-01", container.WithCritic(cannedCritic{reply: reply}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, cannedReply, "version")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "webcritic 1.2.3 (abc123) built on 2026-01-01") {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestRoastCommand_JSON(t *testing.T) {
	path := writePNG(t, t.TempDir(), "home.png", 320, 200)

	out, err := execute(t, cannedReply, "roast", "--json", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v\n%s", err, out)
	}

	var snap models.StateSnapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("Expected JSON snapshot, got %q: %v", out, err)
	}
	if snap.Critique == nil || snap.Critique.Overall != 4 {
		t.Errorf("Unexpected critique %+v", snap.Critique)
	}
	if snap.Processing {
		t.Error("Expected processing false")
	}
}

func TestRoastCommand_Plain(t *testing.T) {
	path := writePNG(t, t.TempDir(), "home.png", 320, 200)

	out, err := execute(t, cannedReply, "roast", "--plain", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{"Design", "6/10", "hostage situation"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestRoastCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "home.png", 50, 50)

	tests := []struct {
		name  string
		reply string
		args  []string
		want  string
	}{
		{"missing file", cannedReply, []string{"roast", "--json", filepath.Join(dir, "nope.png")}, "not found"},
		{"conflicting flags", cannedReply, []string{"roast", "--json", "--plain", good}, "cannot be combined"},
		{"unparseable reply", "whatever", []string{"roast", "--plain", good}, "expected at least 4"},
		{"no args", cannedReply, []string{"roast"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.reply, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestIsScreenshotEvent(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "a.png", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "a.JPEG", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "a.gif", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "notes.txt", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		if got := isScreenshotEvent(tt.event); got != tt.want {
			t.Errorf("isScreenshotEvent(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestSettledFiles(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"new.png":    now.Add(-100 * time.Millisecond),
		"older.png":  now.Add(-2 * time.Second),
		"oldest.png": now.Add(-5 * time.Second),
	}

	got := settledFiles(pending, now, time.Second)
	if len(got) != 2 || got[0] != "oldest.png" || got[1] != "older.png" {
		t.Errorf("Expected oldest settled files first, got %v", got)
	}
}

func TestValidateWatchDir(t *testing.T) {
	dir := t.TempDir()
	file := writePNG(t, dir, "a.png", 1, 1)

	if err := validateWatchDir(dir); err != nil {
		t.Errorf("Expected directory to be valid, got %v", err)
	}
	for _, bad := range []string{"", file, filepath.Join(dir, "missing")} {
		if err := validateWatchDir(bad); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}

func TestWatchRoaster(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "shot.png", 300, 200)

	cfg, err := loadConfig("error")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	c, err := container.NewContainer(cfg, container.WithCritic(cannedCritic{reply: cannedReply}))
	if err != nil {
		t.Fatalf("Failed to build container: %v", err)
	}
	defer c.Close()

	sess, err := c.Sessions().Create(context.Background())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	var out bytes.Buffer
	r := newWatchRoaster(c, sess, &out)
	r.roast(context.Background(), path)
	r.roast(context.Background(), path)

	got := out.String()
	if strings.Count(got, "== shot.png") != 2 {
		t.Errorf("Expected two roasts, got:\n%s", got)
	}
	if !strings.Contains(got, "repeats the previous critique") {
		t.Errorf("Expected the second roast to be flagged as a repeat:\n%s", got)
	}
}

func TestSweepInterval(t *testing.T) {
	if got := sweepInterval(30 * time.Minute); got != 7*time.Minute+30*time.Second {
		t.Errorf("Expected a quarter of the TTL, got %s", got)
	}
	if got := sweepInterval(time.Second); got != time.Second {
		t.Errorf("Expected a one second floor, got %s", got)
	}
}
