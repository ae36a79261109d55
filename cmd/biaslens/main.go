package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"biaslens/internal/catalog"
	"biaslens/internal/cmdlog"
	"biaslens/internal/config"
	"biaslens/internal/jobs"
	"biaslens/internal/logging"
	"biaslens/internal/match"
	"biaslens/internal/metrics"
	"biaslens/internal/model"
	"biaslens/internal/newsapi"
	"biaslens/internal/recommend"
	"biaslens/internal/store/sqlitestore"
	"biaslens/internal/theme"
)

const defaultConfigPath = "./biaslens.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	commands := map[string]func([]string) error{
		"init":        cmdInit,
		"import-bias": cmdImportBias,
		"match":       cmdMatch,
		"closest":     cmdClosest,
		"profile":     cmdProfile,
		"feed":        cmdFeed,
		"label":       cmdLabel,
		"react":       cmdReact,
		"survey":      cmdSurvey,
		"fetch":       cmdFetch,
		"watch":       cmdWatch,
	}
	run, ok := commands[cmd]
	if !ok {
		printHelp()
		return
	}
	if err := cmdlog.Run(cmd, func() error { return run(os.Args[2:]) }); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: biaslens <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init         Create a config file at ./biaslens.yaml")
	fmt.Println("  import-bias  Load a source,bias,confidence CSV into the database")
	fmt.Println("  match        Resolve an outlet name to its bias")
	fmt.Println("  closest      List the catalog names most similar to an outlet")
	fmt.Println("  profile      Show a user's combined political profile")
	fmt.Println("  feed         Today's articles ordered for comfort, balanced or challenge")
	fmt.Println("  label        Label recent articles against a user's stance")
	fmt.Println("  react        Like (1), dislike (-1) or clear (0) a feed row")
	fmt.Println("  survey       Store a user's five survey answers")
	fmt.Println("  fetch        Pull top stories from the news API once")
	fmt.Println("  watch        Refresh stories and biases on an interval")
}

// app bundles what most commands need.
type app struct {
	cfg     config.Config
	db      *sqlitestore.DB
	biases  *catalog.Store
	matcher *match.Matcher
	svc     *recommend.Service
}

func (a *app) Close() { _ = a.db.Close() }

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		cfg = config.Default()
		cfg.ResolveEnv()
	} else if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func openApp(cfgPath string) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	var src catalog.Source = db
	if cfg.Catalog.CSVPath != "" {
		src = catalog.CSVFile(cfg.Catalog.CSVPath)
	}
	biases := catalog.NewStore(src)
	m := match.NewMatcher(biases)
	return &app{cfg: cfg, db: db, biases: biases, matcher: m, svc: recommend.New(db, m)}, nil
}

func newFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs, fs.String("config", defaultConfigPath, "config path")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cmdInit(args []string) error {
	out := flag.NewFlagSet("init", flag.ExitOnError)
	path := out.String("path", defaultConfigPath, "path to write config")
	_ = out.Parse(args)
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdImportBias(args []string) error {
	fs, cfgPath := newFlags("import-bias")
	csvPath := fs.String("csv", "", "CSV file with source,bias,confidence columns")
	_ = fs.Parse(args)
	if *csvPath == "" {
		return errors.New("-csv is required")
	}
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()
	rows, err := catalog.CSVFile(*csvPath).LoadBiasRows(ctx)
	if err != nil {
		return err
	}
	if err := a.db.PutSourceBias(ctx, rows); err != nil {
		return err
	}
	// count what would survive parsing
	fmt.Printf("Imported %d rows (%d usable)\n", len(rows), len(catalog.Parse(rows)))
	return nil
}

func cmdMatch(args []string) error {
	fs, cfgPath := newFlags("match")
	name := fs.String("name", "", "outlet name")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	d := a.svc.Diagnose(context.Background(), *name, a.cfg.Feed.ClosestMatches)
	if !d.Match.Found {
		fmt.Printf("%q: no match\n", *name)
	} else {
		fmt.Printf("%q -> %s confidence=%.2f via %s (%s)\n", *name, theme.Label(d.Match.Bias), d.Match.Confidence, d.Match.Tier, d.Match.Matched)
	}
	for _, c := range d.Closest {
		fmt.Printf("  %-30s %.3f\n", c.OriginalName, c.Similarity)
	}
	return nil
}

func cmdClosest(args []string) error {
	fs, cfgPath := newFlags("closest")
	name := fs.String("name", "", "outlet name")
	n := fs.Int("n", 5, "number of candidates")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	for _, c := range a.matcher.FindClosest(*name, *n) {
		fmt.Printf("%-30s %.3f\n", c.OriginalName, c.Similarity)
	}
	return nil
}

func cmdProfile(args []string) error {
	fs, cfgPath := newFlags("profile")
	email := fs.String("email", "", "user email")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	p, err := a.svc.PoliticalProfile(context.Background(), *email)
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Println("No profile yet: answer the survey or react to some articles.")
		return nil
	}
	return printJSON(p)
}

func cmdFeed(args []string) error {
	fs, cfgPath := newFlags("feed")
	email := fs.String("email", "", "user email")
	mode := fs.String("mode", "balanced", "comfort, balanced or challenge")
	cats := fs.String("categories", "", "comma-separated categories")
	record := fs.Bool("record", false, "record the served feed")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()
	items, err := a.svc.PersonalizedFeed(ctx, *email, *mode, splitList(*cats))
	if err != nil {
		return err
	}
	ids := make([]int64, len(items))
	if *record {
		if ids, err = a.svc.RecordFeed(ctx, *email, *mode, items); err != nil {
			return err
		}
	}
	for i, it := range items {
		prefix := ""
		if *record {
			prefix = fmt.Sprintf("[%d] ", ids[i])
		}
		fmt.Printf("%s%s (%s)\n    %s\n", prefix, it.Headline, it.Source, it.URL)
	}
	return nil
}

func cmdLabel(args []string) error {
	fs, cfgPath := newFlags("label")
	email := fs.String("email", "", "user email")
	limit := fs.Int("limit", 0, "articles to label (default from config)")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if *limit <= 0 {
		*limit = a.cfg.Feed.RecentLimit
	}
	items, err := a.svc.LabeledFeed(context.Background(), *email, *limit)
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Printf("%-9s %s (%s)\n", it.Label, it.Headline, it.Source)
	}
	return nil
}

func cmdReact(args []string) error {
	fs, cfgPath := newFlags("react")
	id := fs.Int64("feed-id", 0, "feed row id")
	likes := fs.Int("likes", 1, "1 like, -1 dislike, 0 clear")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.svc.SetReaction(context.Background(), *id, *likes)
}

func cmdSurvey(args []string) error {
	fs, cfgPath := newFlags("survey")
	email := fs.String("email", "", "user email")
	raw := fs.String("answers", "", "five comma-separated answers: yes, no or empty")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	parts := strings.Split(*raw, ",")
	answers := make([]model.Answer, len(parts))
	for i, p := range parts {
		answers[i] = model.ParseAnswer(strings.ToLower(strings.TrimSpace(p)))
	}
	ctx := context.Background()
	if err := a.db.AddUser(ctx, *email, ""); err != nil && !errors.Is(err, sqlitestore.ErrUserExists) {
		return err
	}
	err = a.db.SaveSurvey(ctx, *email, answers)
	if errors.Is(err, sqlitestore.ErrSurveyExists) {
		err = a.db.UpdateSurvey(ctx, *email, answers)
	}
	if err != nil {
		return err
	}
	p, err := a.svc.PoliticalProfile(ctx, *email)
	if err != nil {
		return err
	}
	return printJSON(p)
}

// newFetcher combines the news API with the configured RSS feeds.
func newFetcher(cfg config.Config) newsapi.Fetcher {
	var m newsapi.Multi
	if cfg.NewsAPI.APIKey != "" {
		m = append(m, newsapi.NewHTTPClient(cfg.NewsAPI.APIKey, newsapi.Options{
			BaseURL:     cfg.NewsAPI.BaseURL,
			Locale:      cfg.NewsAPI.Locale,
			RPS:         cfg.NewsAPI.RPS,
			Burst:       cfg.NewsAPI.Burst,
			MaxAttempts: cfg.NewsAPI.MaxAttempts,
		}))
	} else {
		fmt.Println("warning: missing PUBLIC_NEWS_API_KEY; only RSS feeds will be read")
	}
	for _, r := range cfg.RSS {
		m = append(m, newsapi.NewRSSFeed(r.Outlet, r.URL, r.Category))
	}
	return m
}

func cmdFetch(args []string) error {
	fs, cfgPath := newFlags("fetch")
	cats := fs.String("categories", "", "comma-separated categories (default from config)")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	list := splitList(*cats)
	if len(list) == 0 {
		list = a.cfg.NewsAPI.Categories
	}
	if len(list) == 0 {
		list = []string{""}
	}
	f := newFetcher(a.cfg)
	for _, c := range list {
		sum, err := jobs.RefreshArticlesOnce(context.Background(), a.db, f, c, a.cfg.NewsAPI.Limit)
		if err != nil {
			return fmt.Errorf("category %q: %w", c, err)
		}
		fmt.Printf("%-10s fetched=%d stored=%d\n", c, sum.Fetched, sum.Stored)
	}
	return nil
}

func cmdWatch(args []string) error {
	fs, cfgPath := newFlags("watch")
	_ = fs.Parse(args)
	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	interval, err := a.cfg.Interval()
	if err != nil {
		return err
	}
	metrics.StartServer(a.cfg.Metrics.Addr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logging.Info("watch_start", map[string]any{"interval": interval.String(), "schedule": a.cfg.Catalog.Schedule, "categories": a.cfg.NewsAPI.Categories})
	f := newFetcher(a.cfg)
	if spec := a.cfg.Catalog.Schedule; spec != "" {
		err = jobs.RunRefreshCron(ctx, a.db, f, a.biases, a.cfg.NewsAPI.Categories, a.cfg.NewsAPI.Limit, spec)
	} else {
		err = jobs.RunRefreshLoop(ctx, a.db, f, a.biases, a.cfg.NewsAPI.Categories, a.cfg.NewsAPI.Limit, interval)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
