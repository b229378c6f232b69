package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"osuconv/config"
	"osuconv/convert"
	"osuconv/fetch"
	"osuconv/logging"
	"osuconv/mods"
	"osuconv/objects"
	"osuconv/store"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: osuconv [flags] <file.osu | directory | beatmap id>...\n\n")
		fs.PrintDefaults()
	}
}

// run is main without the process exit. It returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadWithEnvFile(".env")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	fs := flag.NewFlagSet("osuconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs)
	modeFlag := fs.String("mode", cfg.Mode, "stacking rules: standard or droid")
	modsFlag := fs.String("mods", "", "mods to apply, e.g. HR,DT")
	arFlag := fs.Float64("ar", -1, "force approach rate (negative leaves it)")
	speedFlag := fs.Float64("speed", 1, "custom speed multiplier on top of rate mods")
	dbFlag := fs.String("db", cfg.DBPath, "sqlite cache path; empty disables caching")
	fetchFlag := fs.Bool("fetch", false, "treat arguments as beatmap ids and download them")
	workersFlag := fs.Int("workers", cfg.Workers, "beatmaps converted in parallel")
	jsonFlag := fs.Bool("json", false, "print summaries as JSON")
	logFlag := fs.String("log", cfg.LogLevel, "log level: debug, info, warn or error")
	timeoutFlag := fs.Duration("timeout", 0, "per-beatmap conversion deadline; 0 means none")
	if err = fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logging.ParseLevel(*logFlag)})))
	log := logging.Logger()

	mode, err := objects.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	ms, err := mods.Parse(*modsFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *arFlag >= 0 {
		ar := *arFlag
		ms = append(ms, mods.DifficultyAdjust{ApproachRate: &ar})
	}

	var st *store.Store
	if *dbFlag != "" {
		st, err = store.Open(*dbFlag)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer st.Close()
	}

	var jobs []job
	if *fetchFlag {
		client := fetch.New(cfg.FetchBaseURL, cfg.FetchTimeout, cfg.RateLimit)
		jobs, err = fetchJobs(client, fs.Args())
	} else {
		jobs, err = fileJobs(fs.Args())
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	c := &converter{
		store:   st,
		mods:    ms,
		key:     modsKey(ms, *speedFlag),
		opts:    convert.Options{Mode: mode, CustomSpeedMultiplier: *speedFlag},
		timeout: *timeoutFlag,
	}
	start := time.Now()
	results := process(ctx, jobs, *workersFlag, c)

	failed := 0
	var summaries []store.Summary
	for _, r := range results {
		if r.err != nil {
			failed++
			Fail(ctx, st, r.stage, r.name, r.err)
			continue
		}
		summaries = append(summaries, r.summary)
	}
	log.Info("done", "beatmaps", len(results), "failed", failed, "elapsed", time.Since(start))

	if *jsonFlag {
		out, err := json.MarshalIndent(summaries, "", "\t")
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
	} else {
		for _, s := range summaries {
			printSummary(stdout, s)
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

// modsKey names a mod combination in the cache. Forced values and the custom
// speed are part of the key.
func modsKey(ms []mods.Mod, speed float64) string {
	var b strings.Builder
	b.WriteString(mods.Acronyms(ms))
	if da, ok := mods.Find[mods.DifficultyAdjust](ms); ok && da.ApproachRate != nil {
		fmt.Fprintf(&b, "(AR%g)", *da.ApproachRate)
	}
	if speed != 1 && speed > 0 {
		fmt.Fprintf(&b, "x%g", speed)
	}
	return b.String()
}

func printSummary(w io.Writer, s store.Summary) {
	label := s.Mods
	if label == "" {
		label = "NM"
	}
	fmt.Fprintf(w, "%s [%s] +%s (%s)\n", s.Title, s.Version, label, s.Mode)
	fmt.Fprintf(w, "\tAR %.2f  CS %.2f  OD %.2f  HP %.2f  length %s\n", s.AR, s.CS, s.OD, s.HP, time.Duration(s.LengthMS)*time.Millisecond)
	fmt.Fprintf(w, "\tcircles %d  sliders %d  spinners %d  ticks %d  repeats %d\n", s.Circles, s.Sliders, s.Spinners, s.Ticks, s.Repeats)
	fmt.Fprintf(w, "\tmax combo %d  max stack %d\n", s.MaxCombo, s.MaxStack)
}
