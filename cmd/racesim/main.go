// Command racesim drives a full simulated race against the bot in-process:
// it joins the room as a scripted typist, reports progress at a steady pace
// and records the outcome in the local result log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	app "github.com/okian/keysprint/internal/app"
	"github.com/okian/keysprint/internal/domain/race"
	"github.com/okian/keysprint/pkg/logger"
)

// Default simulation constants.
const (
	defaultWPM       = 75.0
	defaultWordCount = 30
	defaultLatency   = 50 * time.Millisecond
	reportInterval   = 500 * time.Millisecond
	simTimeout       = 5 * time.Minute
	charsPerWord     = 5
	fullProgress     = 100.0
)

func main() {
	var (
		username   = flag.String("user", "sim_racer", "Username of the simulated typist")
		wpm        = flag.Float64("wpm", defaultWPM, "Typing speed of the simulated typist")
		wordCount  = flag.Int("words", defaultWordCount, "Words in the race passage")
		latency    = flag.Duration("latency", defaultLatency, "Simulated broadcast latency")
		resultPath = flag.String("results", filepath.Join(os.TempDir(), "keysprint_sim_results.jsonl"), "Result log path")
		accuracy   = flag.Float64("accuracy", 0.96, "Fraction of keystrokes typed correctly")
	)
	flag.Parse()

	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	_ = logger.SetLevelString("warn")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, simTimeout)
	defer cancel()

	svc := app.New(
		app.WithWordCount(*wordCount),
		app.WithBusLatency(*latency),
		app.WithResultPath(*resultPath),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	updates := make(chan race.Snapshot, 64)
	starts := make(chan race.RaceStart, 4)
	svc.SubscribeRoomUpdates(func(_ context.Context, payload any) {
		if snap, ok := payload.(race.Snapshot); ok {
			updates <- snap
		}
	})
	svc.SubscribeRaceStart(func(_ context.Context, payload any) {
		if s, ok := payload.(race.RaceStart); ok {
			starts <- s
		}
	})

	fmt.Printf("joining race as %q at %.0f wpm\n", *username, *wpm)
	if !svc.JoinRace(ctx, *username) {
		os.Stderr.WriteString("join rejected\n")
		return
	}

	final, startAt, ok := runRace(ctx, svc, updates, starts, *username, *wpm)
	if !ok {
		os.Stderr.WriteString("race did not finish\n")
		return
	}

	printStandings(final)
	recordResult(ctx, svc, final, startAt, *accuracy)
}

// runRace pumps broadcasts and reports scripted progress until the room
// finishes. Returns the final snapshot and the race start instant.
func runRace(ctx context.Context, svc *app.Service, updates <-chan race.Snapshot, starts <-chan race.RaceStart, username string, wpm float64) (race.Snapshot, time.Time, bool) {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	var (
		textLen int
		startAt time.Time
		racing  bool
	)

	for {
		select {
		case <-ctx.Done():
			return race.Snapshot{}, time.Time{}, false

		case s := <-starts:
			startAt = s.StartTime
			racing = true
			fmt.Println("race started")

		case snap := <-updates:
			textLen = len(snap.Text)
			describe(snap)
			if snap.Status == race.StatusFinished {
				return snap, startAt, true
			}

		case <-ticker.C:
			if !racing || textLen == 0 {
				continue
			}
			elapsed := time.Since(startAt).Seconds()
			chars := wpm / 60 * charsPerWord * elapsed
			progress := chars / float64(textLen) * fullProgress
			if progress > fullProgress {
				progress = fullProgress
			}
			svc.ReportProgress(ctx, username, wpm, progress)
		}
	}
}

// describe prints a one-line view of a room broadcast.
func describe(snap race.Snapshot) {
	parts := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		parts = append(parts, fmt.Sprintf("%s %.0f%% @ %.0f wpm", p.Username, p.Progress, p.WPM))
	}
	line := string(snap.Status)
	if snap.Countdown != nil {
		line = fmt.Sprintf("%s %d", line, *snap.Countdown)
	}
	fmt.Printf("[%s] %s\n", line, strings.Join(parts, " | "))
}

func printStandings(final race.Snapshot) {
	fmt.Println("final standings:")
	for _, p := range final.Players {
		marker := " "
		if p.Progress >= fullProgress {
			marker = "*"
		}
		fmt.Printf("  %s %-16s %6.1f%% %6.1f wpm\n", marker, p.Username, p.Progress, p.WPM)
	}
}

// recordResult measures the scripted run and appends it to the result log.
func recordResult(ctx context.Context, svc *app.Service, final race.Snapshot, startAt time.Time, accuracy float64) {
	if startAt.IsZero() {
		return
	}

	total := len(final.Text)
	correct := int(float64(total) * accuracy)
	st := svc.ComputeStats(correct, total, &startAt)

	saved, err := svc.SaveResult(ctx, app.RaceMode, 0, st)
	if err != nil {
		os.Stderr.WriteString("failed to save result: " + err.Error() + "\n")
		return
	}
	fmt.Printf("saved result %s: %d wpm, %d%% accuracy over %ds\n",
		saved.ID, saved.Stats.WPM, saved.Stats.Accuracy, saved.Stats.TimeElapsed)

	recent, err := svc.RecentResults(ctx, 5)
	if err != nil {
		return
	}
	fmt.Printf("recent results: %d\n", len(recent))
	for _, r := range recent {
		fmt.Printf("  %s %-5s %3d wpm %3d%% %s\n",
			r.Date.Format(time.RFC3339), r.Mode, r.Stats.WPM, r.Stats.Accuracy, r.ID)
	}
}
