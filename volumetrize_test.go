package volumetrize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bft-labs/volumetrize/internal/domain"
)

func TestPlan(t *testing.T) {
	project := t.TempDir()
	for i := 0; i < 6; i++ {
		if err := os.MkdirAll(filepath.Join(project, fmt.Sprintf("frame_%03d", i), "images"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	names, err := Plan(context.Background(), Config{Project: project, Tool: "colmap", Start: 2, Count: 2})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"frame_000", "frame_002", "frame_003"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("Plan = %v, want %v", names, want)
	}
}

func TestPlan_NoFrames(t *testing.T) {
	_, err := Plan(context.Background(), Config{Project: t.TempDir(), Tool: "colmap"})
	if !errors.Is(err, domain.ErrMissingFrames) {
		t.Errorf("Plan error = %v, want missing frames", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{Tool: "colmap"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Run error = %v, want configuration error", err)
	}
}
