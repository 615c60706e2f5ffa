package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alchemi/discovery-orchestrator/internal/config"
	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/engine"
	"github.com/alchemi/discovery-orchestrator/internal/notify"
	"github.com/alchemi/discovery-orchestrator/internal/retention"
	"github.com/alchemi/discovery-orchestrator/internal/rubric"
	"github.com/alchemi/discovery-orchestrator/internal/runstore"
	"github.com/alchemi/discovery-orchestrator/internal/scripted"
	"github.com/alchemi/discovery-orchestrator/tui"
	"github.com/alchemi/discovery-orchestrator/web/api"
)

var (
	runDomain      string
	runConstraints []string
	runIterations  int
	listStatus     string
	listDomain     string
	listLimit      int
	servePort      int
	monitorAddr    string
	pruneAge       time.Duration
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run QUERY",
		Short: "Run one discovery workflow to completion",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runDomain, "domain", "", "research domain")
	runCmd.Flags().StringArrayVar(&runConstraints, "constraint", nil, "constraint as key=value (repeatable)")
	runCmd.Flags().IntVar(&runIterations, "max-iterations", 0, "per-phase iteration budget override")
	rootCmd.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on")
	rootCmd.AddCommand(serveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listDomain, "domain", "", "filter by domain")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(listCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show archived run counts",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old terminal runs from the archive",
		RunE:  runPrune,
	}
	pruneCmd.Flags().DurationVar(&pruneAge, "older-than", 0, "age cutoff (default from config)")
	rootCmd.AddCommand(pruneCmd)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Launch the TUI against a running server",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().StringVar(&monitorAddr, "addr", "http://localhost:8080", "server base URL")
	rootCmd.AddCommand(monitorCmd)
}

func openStore(cfg *config.Config) (*runstore.Store, error) {
	if dir := filepath.Dir(cfg.General.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return runstore.New(cfg.General.DatabasePath)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func newManager(cfg *config.Config, opts ...engine.Option) (*engine.Manager, error) {
	source := rubric.NewSource(cfg.General.RubricDir)
	if err := source.Load(); err != nil {
		return nil, fmt.Errorf("loading rubrics: %w", err)
	}

	provider := scripted.New(source.Current())
	return engine.NewManager(provider, provider, provider, source, cfg.EngineConfig(), opts...), nil
}

func newNotifier(cfg *config.Config) engine.Notifier {
	sinks := []notify.Notifier{notify.NewDesktopNotifier(cfg.Notifications.Desktop)}
	if cfg.Notifications.SlackWebhook != "" {
		sinks = append(sinks, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	return notify.NewRunNotifier(notify.NewMultiNotifier(sinks...))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr, err := newManager(cfg, engine.WithSnapshotSink(store))
	if err != nil {
		return err
	}

	constraints := make(map[string]string, len(runConstraints))
	for _, c := range runConstraints {
		key, value, ok := strings.Cut(c, "=")
		if !ok {
			return fmt.Errorf("constraint %q is not key=value", c)
		}
		constraints[key] = value
	}

	id, err := mgr.Start(args[0], domain.RunOptions{
		Domain:        runDomain,
		Constraints:   constraints,
		MaxIterations: runIterations,
	})
	if err != nil {
		return err
	}

	events, cancel, err := mgr.Subscribe(id)
	if err != nil {
		return err
	}
	defer cancel()

	fmt.Printf("run %s: %s\n", id, args[0])
	for ev := range events {
		printEvent(ev)
	}

	run, err := mgr.Get(id)
	if err != nil {
		return err
	}
	if run.Status != domain.RunCompleted && run.Status != domain.RunCompletedPartial {
		return fmt.Errorf("run %s: %s", run.Status, run.Error)
	}
	return nil
}

func printEvent(ev engine.Event) {
	switch e := ev.(type) {
	case *engine.ProgressEvent:
		fmt.Printf("  [%s] %3d%% %s\n", e.Phase, e.Percent, e.Step)
	case *engine.IterationEvent:
		verdict := "below threshold"
		if e.Result.Passed {
			verdict = "passed"
		}
		fmt.Printf("  [%s] iteration %d scored %.2f (%s)\n", e.Phase, e.Iteration, e.Result.TotalScore, verdict)
	case *engine.PhaseFailedEvent:
		if e.ContinuingDegraded {
			fmt.Printf("  [%s] failed at %.2f (threshold %.1f), continuing degraded\n", e.Phase, e.Score, e.Threshold)
		} else {
			fmt.Printf("  [%s] failed at %.2f (threshold %.1f)\n", e.Phase, e.Score, e.Threshold)
		}
	case *engine.CompleteEvent:
		fmt.Printf("completed: %.2f overall (%s)\n", e.OverallScore, e.QualityTier)
	case *engine.PartialCompleteEvent:
		fmt.Printf("completed with degradation: %.2f overall (%s)\n", e.OverallScore, e.QualityTier)
		fmt.Printf("  %s\n", e.FailureMode)
		for _, rec := range e.Recommendations {
			for _, issue := range rec.Issues {
				fmt.Printf("  recovery [%s/%s]: %s\n", rec.Phase, issue.CriterionID, issue.Suggestion)
			}
		}
	case *engine.ErrorEvent:
		fmt.Printf("  error: %s\n", e.Reason)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Web.Port = servePort
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	source := rubric.NewSource(cfg.General.RubricDir)
	if err := source.Load(); err != nil {
		return fmt.Errorf("loading rubrics: %w", err)
	}
	watcher, err := rubric.NewWatcher(source)
	if err != nil {
		return err
	}

	provider := scripted.New(source.Current())
	mgr := engine.NewManager(provider, provider, provider, source, cfg.EngineConfig(),
		engine.WithSnapshotSink(store),
		engine.WithNotifier(newNotifier(cfg)),
	)

	sweeper, err := retention.NewSweeper(store, cfg.Retention)
	if err != nil {
		return err
	}

	server := api.NewServer(mgr, &archiveAdapter{store: store}, cfg.Web.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("serving on http://%s", cfg.Web.Addr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error {
		watcher.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(runstore.ListOptions{
		Domain: listDomain,
		Status: domain.RunStatus(listStatus),
		Limit:  listLimit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUERY\tSTATUS\tSCORE\tTIER\tCREATED")
	for _, run := range runs {
		tier := string(run.QualityTier)
		if tier == "" {
			tier = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			run.ID, run.Query, run.Status, run.OverallScore, tier,
			run.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountByStatus()
	if err != nil {
		return err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Printf("Runs: %d total | %d completed | %d partial | %d failed | %d cancelled\n",
		total,
		counts[domain.RunCompleted],
		counts[domain.RunCompletedPartial],
		counts[domain.RunFailed],
		counts[domain.RunCancelled])

	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	age := pruneAge
	if age == 0 {
		age = cfg.Retention.Age
	}

	pruned, err := store.Prune(time.Now().Add(-age))
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d runs older than %s\n", pruned, age)
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	client := tui.NewClient(monitorAddr)
	model := tui.NewModel(tui.ModelConfig{
		Fetcher:    client,
		Controller: client,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// archiveAdapter bridges the run store to the API's archive interface
type archiveAdapter struct {
	store *runstore.Store
}

func (a *archiveAdapter) GetRun(id string) (*domain.DiscoveryRun, error) {
	return a.store.GetRun(id)
}

func (a *archiveAdapter) ListRuns(opts api.ArchiveListOptions) ([]*domain.DiscoveryRun, error) {
	return a.store.ListRuns(runstore.ListOptions{
		Domain: opts.Domain,
		Status: opts.Status,
		Limit:  opts.Limit,
	})
}

func (a *archiveAdapter) CountByStatus() (map[domain.RunStatus]int, error) {
	return a.store.CountByStatus()
}
