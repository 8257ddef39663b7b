package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-insights/internal/advice"
	"github.com/dvloznov/finance-insights/internal/alerts"
	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/gemini"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	files      []string
	gcsURIs    []string
	manual     []string
	dateRange  string
	start      string
	end        string
	categories []string
	target     float64
	frequency  string
	advice     bool
	noProgress bool
}

func analyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Parse statements and print a spending summary",
		Long: `Parse one or more bank statements, add manual cash entries, apply date
and category filters and print the monthly summary, the spending ranking by
category and any suspicious transactions. With --target and --advice a
savings plan is requested as well.`,
		Example: `  finsight analyze --file jan.pdf --file feb.pdf --range LAST_MONTH
  finsight analyze --gcs-uri gs://statements/mar.pdf --target 100 --frequency weekly --advice
  finsight analyze --manual "2024-03-02,40,Farmers market,EXPENSE"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.files, "file", nil, "local statement file (repeatable)")
	f.StringArrayVar(&opts.gcsURIs, "gcs-uri", nil, "gs:// URI of a statement (repeatable)")
	f.StringArrayVar(&opts.manual, "manual", nil, `manual entry "date,amount[,description[,type]]" (repeatable)`)
	f.StringVar(&opts.dateRange, "range", "ALL", "date range: ALL, THIS_MONTH, LAST_MONTH or CUSTOM")
	f.StringVar(&opts.start, "start", "", "start date for CUSTOM range (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "end date for CUSTOM range (YYYY-MM-DD)")
	f.StringSliceVar(&opts.categories, "category", nil, "only show these categories (repeatable or comma separated)")
	f.Float64Var(&opts.target, "target", 0, "savings target amount")
	f.StringVar(&opts.frequency, "frequency", string(domain.FrequencyMonthly), "savings target frequency: WEEKLY, MONTHLY or QUARTERLY")
	f.BoolVar(&opts.advice, "advice", false, "request a savings plan toward --target")
	f.BoolVar(&opts.noProgress, "no-progress", false, "hide the parsing progress bar")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	entries, err := parseManualEntries(opts.manual)
	if err != nil {
		return err
	}
	kind, err := analysis.ParseRangeKind(opts.dateRange)
	if err != nil {
		return err
	}
	categories, err := parseCategories(opts.categories)
	if err != nil {
		return err
	}
	if opts.advice && opts.target <= 0 {
		return errors.New("--advice needs a positive --target")
	}

	sources := make([]pipeline.Source, 0, len(opts.files)+len(opts.gcsURIs))
	for _, f := range opts.files {
		sources = append(sources, pipeline.Source{URI: f})
	}
	for _, uri := range opts.gcsURIs {
		sources = append(sources, pipeline.Source{URI: uri})
	}

	bar := newStatementProgress(cmd.ErrOrStderr(), !opts.noProgress)
	ws, cleanup, err := newWorkspace(ctx, len(opts.gcsURIs) > 0, len(sources) > 0 || opts.advice, bar.Update)
	if err != nil {
		return err
	}
	defer cleanup()

	var failures []error
	for _, src := range sources {
		bar.Begin(src.Name())
		added, err := ws.IngestStatement(ctx, src)
		bar.End(err == nil)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		log.Info().Str("source", src.Name()).Int("transactions", len(added)).Msg("Statement parsed")
	}

	for _, e := range entries {
		ws.AddManual(ctx, e)
	}

	ws.SetDateSelector(analysis.DateSelector{Kind: kind, Start: opts.start, End: opts.end})
	ws.SetCategories(categories)

	report := Report{
		View:   ws.View(),
		Alerts: ws.PendingAlerts(),
	}

	if opts.target > 0 {
		if err := ws.SetSavingsTarget(domain.SavingsTarget{Amount: opts.target, Frequency: domain.Frequency(opts.frequency)}); err != nil {
			return err
		}
		target := ws.SavingsTarget()
		report.Target = &target
	}

	if opts.advice {
		adv, err := ws.RequestAdvice(ctx)
		if err != nil {
			failures = append(failures, err)
		} else {
			report.Advice = &adv
		}
	}

	if err := report.Render(out); err != nil {
		return err
	}

	return errors.Join(failures...)
}

// newWorkspace builds a workspace for one CLI run. The Gemini client is only
// created when statements are parsed or advice is requested, and Cloud
// Storage only when a gs:// statement is given.
func newWorkspace(ctx context.Context, needStorage, needModel bool, onProgress func(float64)) (*workspace.Workspace, func(), error) {
	cleanup := func() {}

	var objects documents.ObjectStore
	if needStorage {
		gcs, err := documents.NewGCSStore(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		objects = gcs
		cleanup = func() { _ = gcs.Close() }
	}

	var (
		ingester workspace.Ingester
		adviser  advice.Adviser
	)
	if needModel {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		ingester = pipeline.NewIngester(documents.NewFetcher(objects), pipeline.NewGeminiParser(client), log)
		adviser = advice.NewGeminiAdviser(client)
	}

	ws := workspace.New(ingester, adviser, alerts.NewLogNotifier(log), log, workspace.Options{
		Detector: anomaly.Detector{
			Threshold:    cfg.AnomalyThreshold,
			MinGroupSize: cfg.AnomalyMinGroupSize,
		},
		AdviceTopN:       cfg.AdviceTopN,
		ProgressInterval: cfg.ProgressInterval,
		OnProgress:       onProgress,
	})

	return ws, cleanup, nil
}

// parseManualEntries reads "date,amount[,description[,type]]" values.
func parseManualEntries(values []string) ([]workspace.ManualEntry, error) {
	entries := make([]workspace.ManualEntry, 0, len(values))
	for _, v := range values {
		fields := strings.SplitN(v, ",", 4)
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid manual entry %q: want date,amount[,description[,type]]", v)
		}

		date := strings.TrimSpace(fields[0])
		if _, err := civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("invalid manual entry %q: %w", v, err)
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || amount == 0 {
			return nil, fmt.Errorf("invalid manual entry %q: amount must be a non-zero number", v)
		}

		e := workspace.ManualEntry{Date: date, Amount: amount, Type: domain.TypeExpense}
		if len(fields) > 2 {
			e.Description = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			e.Type = domain.ParseType(fields[3])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseCategories resolves category names, rejecting unknown ones.
func parseCategories(names []string) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(names))
	for _, name := range names {
		c := domain.ParseCategory(name)
		if c == domain.CategoryOther && !strings.EqualFold(strings.TrimSpace(name), string(domain.CategoryOther)) {
			return nil, fmt.Errorf("unknown category %q (known: %s)", name, strings.Join(domain.CategoryNames(), ", "))
		}
		out = append(out, c)
	}
	return out, nil
}
