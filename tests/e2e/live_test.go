package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vietddude/armctl/internal/control"
	"github.com/vietddude/armctl/internal/core/config"
	"github.com/vietddude/armctl/internal/core/domain"
)

// TestArm_Live drives a real controller. The arm moves: clear the workspace.
func TestArm_Live(t *testing.T) {
	if os.Getenv("E2E_LIVE") == "" {
		t.Skip("Skipping live E2E test. Set E2E_LIVE=true to run.")
	}
	baseURL := os.Getenv(config.EnvBaseURL)
	if baseURL == "" {
		t.Fatalf("%s must point at the controller", config.EnvBaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	journalCfg := control.JournalConfig{}
	if url := os.Getenv("ARMCTL_TEST_POSTGRES_URL"); url != "" {
		journalCfg = control.JournalConfig{Driver: "pgx", URL: url}
	}
	journal, err := control.OpenJournal(ctx, journalCfg, nil)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}

	cfg := control.DefaultConfig(baseURL)
	cfg.Journal = journal

	err = control.WithSession(ctx, cfg, func(ctx context.Context, s *control.Session) error {
		if _, err := s.Initialize(ctx); err != nil {
			return err
		}
		home := domain.Pose{X: 25, Y: 0, Z: 15, Roll: 0, Pitch: -30, Yaw: 0, Grip: 50}
		resp, err := s.MoveAbsolute(ctx, home, nil)
		if err != nil {
			return err
		}
		t.Logf("Controller answered %v", resp.Native())

		hist, err := s.History(ctx, 2)
		if err != nil {
			return err
		}
		if len(hist) != 2 || !hist[0].Succeeded() || !hist[1].Succeeded() {
			t.Errorf("unexpected journal %+v", hist)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Live session failed: %v", err)
	}
}
