package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/armctl/internal/control"
	"github.com/vietddude/armctl/internal/core/config"
	"github.com/vietddude/armctl/internal/core/domain"
)

// Quick start: home the arm, visit a few poses, then print what happened.
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	baseURL := os.Getenv(config.EnvBaseURL)
	if baseURL == "" {
		log.Fatalf("%s is not set", config.EnvBaseURL)
	}

	ctx := context.Background()

	poses := []domain.Pose{
		{X: 25, Y: 0, Z: 15, Roll: 0, Pitch: -30, Yaw: 0, Grip: 50},
		{X: 20, Y: 10, Z: 20, Roll: 0, Pitch: -15, Yaw: 30, Grip: 100},
		{X: 20, Y: -10, Z: 10, Roll: 0, Pitch: -45, Yaw: -30, Grip: 0},
	}

	err = control.WithSession(ctx, control.DefaultConfig(baseURL), func(ctx context.Context, s *control.Session) error {
		fmt.Println("=== Initializing arm ===")
		if _, err := s.Initialize(ctx); err != nil {
			return err
		}

		fmt.Println("=== Moving through poses ===")
		for i, p := range poses {
			resp, err := s.MoveAbsolute(ctx, p, nil)
			if err != nil {
				log.Printf("Move %d failed: %v", i+1, err)
				continue
			}
			fmt.Printf("Move %d: %s -> %v\n", i+1, p, resp.Native())
			time.Sleep(500 * time.Millisecond)
		}

		// Outside the default envelope: rejected locally, never sent.
		far := poses[0]
		far.X = 999999
		if _, err := s.MoveAbsolute(ctx, far, nil); err != nil {
			fmt.Printf("Rejected as expected: %v\n", err)
		}

		fmt.Println()
		fmt.Println("=== Journal ===")
		hist, err := s.History(ctx, 10)
		if err != nil {
			return err
		}
		for _, r := range hist {
			fmt.Printf("  %-5s %-14s attempts=%d %v\n", r.Action, r.Outcome, r.Attempts, r.Duration.Round(time.Millisecond))
		}

		stats := s.Stats()
		fmt.Println()
		fmt.Printf("Controller: %s, avg latency %v, %d responses, %d failures\n",
			stats.Status, stats.AverageLatency.Round(time.Millisecond), stats.Responses, stats.Failures)
		return nil
	})
	if err != nil {
		log.Fatalf("Session failed: %v", err)
	}
}
