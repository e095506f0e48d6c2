// Command visplot is a session-scoped CLI over a Site YAML file and a
// target-list text file: plan a night from scratch, update an in-progress
// session against freshly edited input, or append targets to one.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kestrelsky/visplot/input"
	"github.com/kestrelsky/visplot/night"
	"github.com/kestrelsky/visplot/scheduler"
	"github.com/kestrelsky/visplot/site"
	"github.com/kestrelsky/visplot/target"
	"github.com/kestrelsky/visplot/targetlist"
	"github.com/kestrelsky/visplot/visploterr"
)

var (
	sitePath    string
	dateStr     string
	targetsPath string
	sessionPath string
	nowStr      string
	maintainOrder bool
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("visplot exited with an error")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "visplot",
		Short: "Nightly observation scheduler for a ground-based telescope",
	}
	root.PersistentFlags().StringVar(&sitePath, "site", "", "path to the site YAML configuration")
	root.PersistentFlags().StringVar(&dateStr, "date", "", "observing date, YYYY-MM-DD (the night starting that evening)")
	root.PersistentFlags().StringVar(&targetsPath, "targets", "", "path to the target-list text file")
	root.PersistentFlags().StringVar(&sessionPath, "session", ".visplot-session.json", "path to the session state file")
	root.PersistentFlags().BoolVar(&maintainOrder, "maintain-order", false, "schedule in the targets' original order instead of by setting time")

	root.AddCommand(planCmd())
	root.AddCommand(updateCmd())
	root.AddCommand(addCmd())
	return root
}

// sessionState is the minimum the CLI needs to remember between
// invocations to support update/add: the inputs that produced the
// currently-planned schedule, so a later invocation can diff against them.
type sessionState struct {
	SitePath string   `json:"sitePath"`
	Date     string   `json:"date"`
	Lines    []string `json:"lines"`
}

func loadSession(path string) (*sessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s sessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "corrupt session file")
	}
	return &s, nil
}

func saveSession(path string, s sessionState) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading target list %s", path)
	}
	return strings.Split(string(data), "\n"), nil
}

func buildNight(ctx context.Context, s *site.Site, dateStr string) (*night.Night, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, errors.Wrapf(err, "bad --date %q, want YYYY-MM-DD", dateStr)
	}
	n, err := night.New(s.LatitudeDeg, s.LongitudeDeg, date, 0)
	if err != nil {
		return nil, err
	}
	log.Info().Str("site", s.Name).Str("date", dateStr).Msg("night built")
	return n, nil
}

func offlineIntervals(lines []string, n *night.Night) [][2]float64 {
	res := input.Parse(lines)
	var out [][2]float64
	for _, o := range res.Offline {
		out = append(out, input.ResolveOffline(o, n.Sunset))
	}
	return out
}

func strategy() scheduler.OrderStrategy {
	if maintainOrder {
		return scheduler.InOriginalOrder
	}
	return scheduler.InOrderOfSetting
}

func logTargetWarnings(targets []*target.Target) {
	for _, tg := range targets {
		if !tg.ObservableTonight {
			log.Warn().Str("target", tg.Name).Str("reason", tg.InfeasibleReason.String()).
				Msg("target not observable tonight")
		}
	}
}

func requireSiteAndTargets() (*site.Site, []string, error) {
	if sitePath == "" {
		return nil, nil, errors.New("--site is required")
	}
	if targetsPath == "" {
		return nil, nil, errors.New("--targets is required")
	}
	s, err := site.Load(sitePath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading site configuration")
	}
	lines, err := readLines(targetsPath)
	if err != nil {
		return nil, nil, err
	}
	return s, lines, nil
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Build a night from scratch and schedule every target",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, lines, err := requireSiteAndTargets()
			if err != nil {
				return err
			}
			n, err := buildNight(ctx, s, dateStr)
			if err != nil {
				return err
			}

			targets, errs := targetlist.SetTargets(lines, n, s, offlineIntervals(lines, n))
			for _, e := range errs {
				logParseOrDomainError(e)
			}
			log.Info().Int("count", len(targets)).Msg("targets parsed")
			logTargetWarnings(targets)

			scheduler.Plan(targets, n, strategy())
			printSchedule(targets, n, offlineIntervals(lines, n))

			return saveSession(sessionPath, sessionState{SitePath: sitePath, Date: dateStr, Lines: lines})
		},
	}
}

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-read the target file and replan against the previous session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prev, err := loadSession(sessionPath)
			if err != nil {
				return errors.Wrap(err, "no previous session to update (run plan first)")
			}

			s, err := site.Load(prev.SitePath)
			if err != nil {
				return errors.Wrap(err, "loading site configuration")
			}
			n, err := buildNight(ctx, s, prev.Date)
			if err != nil {
				return err
			}

			oldTargets, errs := targetlist.SetTargets(prev.Lines, n, s, offlineIntervals(prev.Lines, n))
			for _, e := range errs {
				logParseOrDomainError(e)
			}

			newLines, err := readLines(targetsPath)
			if err != nil {
				return err
			}

			nowMJD, err := nowMJDFlag(n)
			if err != nil {
				return err
			}

			diff, errs2 := targetlist.PrepareScheduleForUpdate(oldTargets, newLines, nowMJD, n, s, offlineIntervals(newLines, n))
			for _, e := range errs2 {
				logParseOrDomainError(e)
			}
			log.Info().Str("mode", string(diff.Mode)).Msg("replan mode decided")

			switch diff.Mode {
			case targetlist.Unchanged:
				// The session file keeps no schedule, so planning the
				// unchanged list again reproduces the previous one.
				scheduler.Plan(diff.Targets, n, strategy())
				printSchedule(diff.Targets, n, offlineIntervals(newLines, n))
			case targetlist.MidnightReplan:
				scheduler.UpdateSchedule(diff.Targets, n, nowMJD, strategy())
				printSchedule(diff.Targets, n, offlineIntervals(newLines, n))
			default: // FullReplan, AddedOnly
				scheduler.Plan(diff.Targets, n, strategy())
				printSchedule(diff.Targets, n, offlineIntervals(newLines, n))
			}

			return saveSession(sessionPath, sessionState{SitePath: prev.SitePath, Date: prev.Date, Lines: newLines})
		},
	}
	cmd.Flags().StringVar(&nowStr, "now", "", "current wall-clock UT time, HH:MM (for mid-night replans)")
	return cmd
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Append targets to the running session and replan",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prev, err := loadSession(sessionPath)
			if err != nil {
				return errors.Wrap(err, "no previous session to add to (run plan first)")
			}

			s, err := site.Load(prev.SitePath)
			if err != nil {
				return errors.Wrap(err, "loading site configuration")
			}
			n, err := buildNight(ctx, s, prev.Date)
			if err != nil {
				return err
			}

			existing, errs := targetlist.SetTargets(prev.Lines, n, s, offlineIntervals(prev.Lines, n))
			for _, e := range errs {
				logParseOrDomainError(e)
			}

			extraLines, err := readLines(targetsPath)
			if err != nil {
				return err
			}

			allLines := append(append([]string(nil), prev.Lines...), extraLines...)
			merged, errs2 := targetlist.AddTargets(existing, extraLines, n, s, offlineIntervals(allLines, n))
			for _, e := range errs2 {
				logParseOrDomainError(e)
			}
			log.Info().Int("added", len(merged)-len(existing)).Msg("targets added, running added-only replan")

			scheduler.Plan(merged, n, strategy())
			printSchedule(merged, n, offlineIntervals(allLines, n))

			return saveSession(sessionPath, sessionState{SitePath: prev.SitePath, Date: prev.Date, Lines: allLines})
		},
	}
}

func nowMJDFlag(n *night.Night) (float64, error) {
	if nowStr == "" {
		return n.Sunset, nil
	}
	parts := strings.SplitN(nowStr, ":", 2)
	if len(parts) != 2 {
		return 0, errors.Errorf("bad --now %q, want HH:MM", nowStr)
	}
	h, err1 := strconv.ParseFloat(parts[0], 64)
	m, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, errors.Errorf("bad --now %q, want HH:MM", nowStr)
	}
	dayFloor := float64(int(n.Sunset))
	mjd := dayFloor + (h+m/60.0)/24.0
	if mjd < n.Sunset {
		mjd += 1.0
	}
	return mjd, nil
}

func logParseOrDomainError(err error) {
	var inputErr *visploterr.InputError
	if errors.As(err, &inputErr) {
		log.Warn().Int("line", inputErr.Line).Str("kind", inputErr.Kind).Msg(inputErr.Detail)
		return
	}
	log.Error().Stack().Err(err).Msg("target skipped due to a domain error")
}

func printSchedule(targets []*target.Target, n *night.Night, offline [][2]float64) {
	fmt.Println("name\tstart(UT)\tend(UT)\taltStart\taltMid\taltEnd\tproject")
	for _, tg := range targets {
		if !tg.Scheduled {
			continue
		}
		fmt.Printf("%s\t%s\t%s\t%.1f\t%.1f\t%.1f\t%s\n",
			tg.Name, formatMJDClock(tg.ScheduledStart), formatMJDClock(tg.ScheduledEnd),
			tg.AltStartTime, tg.AltMidTime, tg.AltEndTime, tg.Project)
	}

	var unscheduled []string
	for _, tg := range targets {
		if !tg.Scheduled {
			unscheduled = append(unscheduled, tg.Name)
		}
	}
	sort.Strings(unscheduled)
	if len(unscheduled) > 0 {
		fmt.Println("\nunscheduled:", strings.Join(unscheduled, ", "))
	}

	stats := scheduler.ComputeStats(targets, n, offline)
	fmt.Printf("\nnight length %.0fs, scheduled %.0fs, offline %.0fs, free %.0fs\n",
		stats.NightLengthSec, stats.ScheduledSec, stats.OfflineLostSec, stats.FreeSec)
	for _, p := range stats.PerProjectSec {
		fmt.Printf("  %-20s %.0fs\n", p.Project, p.Sec)
	}
}

func formatMJDClock(mjd float64) string {
	frac := mjd - float64(int(mjd))
	totalMin := frac * 1440.0
	h := int(totalMin / 60.0)
	m := int(totalMin) % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}
