package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MrWong99/lastman/internal/host"
	"github.com/MrWong99/lastman/internal/host/scene"
)

func TestPrintSceneReport(t *testing.T) {
	t.Parallel()
	sc := scene.New(
		scene.NewNPC(1, "Hans", &host.NPCComposition{ID: 3105, Actions: []string{"Talk-to", ""}}),
		scene.NewNPC(2, "Ghost", nil),
	)
	sc.RegisterRenderableDrawListener(func(r host.Renderable, _ bool) bool {
		return r.(host.NPC).Name() != "Hans"
	})

	var buf bytes.Buffer
	printSceneReport(&buf, sc)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("report has %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if f := strings.Fields(lines[1]); len(f) != 5 || f[1] != "Hans" || f[2] != "3105" || f[3] != "Talk-to" || f[4] != "no" {
		t.Errorf("hans row = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); len(f) != 5 || f[2] != "-" || f[4] != "yes" {
		t.Errorf("ghost row = %q", lines[2])
	}
}

func TestPrintSceneReport_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printSceneReport(&buf, scene.New())
	if buf.Len() != 0 {
		t.Errorf("empty scene printed %q", buf.String())
	}
}

func TestRow_Truncates(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	row(&buf, "Listen addr", "very-long-hostname.example.com:9090")
	if !strings.Contains(buf.String(), "very-long-hostna…") {
		t.Errorf("row = %q", buf.String())
	}
}
