package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadgrid/tracker-cli/internal/scorer"
)

var (
	scorePages     int
	scoreURLs      []string
	scoreEvents    int
	scoreDuration  time.Duration
	scoreReturning bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the lead score for a hypothetical session",
	Long:  "Offline scoring calculator. Feed it a session shape (page count or explicit URLs, event count, duration, returning flag) and it prints the score and classification the pipeline would assign.",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := initEngine(cfg.Scoring)
		if err != nil {
			return err
		}

		urls := scoreURLs
		for len(urls) < scorePages {
			urls = append(urls, fmt.Sprintf("https://example.com/page-%d", len(urls)+1))
		}

		score := engine.Score(scorer.Input{
			PageURLs:   urls,
			EventCount: scoreEvents,
			Duration:   scoreDuration,
			Returning:  scoreReturning,
		})

		fmt.Printf("score:  %d\nstatus: %s\n", score, engine.Classify(score))
		return nil
	},
}

func init() {
	scoreCmd.Flags().IntVar(&scorePages, "pages", 1, "number of pages viewed")
	scoreCmd.Flags().StringSliceVar(&scoreURLs, "url", nil, "explicit page URLs (repeatable; contact/about/pricing paths add bonuses)")
	scoreCmd.Flags().IntVar(&scoreEvents, "events", 0, "number of behavior events")
	scoreCmd.Flags().DurationVar(&scoreDuration, "duration", 0, "session duration (e.g. 90s, 5m)")
	scoreCmd.Flags().BoolVar(&scoreReturning, "returning", false, "visitor was seen before")
	rootCmd.AddCommand(scoreCmd)
}
