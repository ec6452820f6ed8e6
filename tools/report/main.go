package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/coworking-metz/tickets-backend-sub000/internal/bootstrap"
	"github.com/coworking-metz/tickets-backend-sub000/internal/config"
	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/logger"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/metrics"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/application"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/interfaces"
)

type options struct {
	configPath         string
	kind               string
	period             string
	from               string
	to                 string
	member             string
	format             string
	out                string
	includesCurrent    bool
	includesCurrentSet bool
	refresh            bool
	clearCache         bool
}

// computer is the part of the aggregator the report needs.
type computer interface {
	ComputePeriodsStats(ctx context.Context, periodType stats.PeriodType, opts application.StatsOptions) ([]stats.PeriodSummary, error)
	ComputePeriodUsage(ctx context.Context, periodType stats.PeriodType, from, to time.Time) ([]stats.UsagePeriodSummary, error)
	ComputePeriodIncome(ctx context.Context, periodType stats.PeriodType, from, to time.Time) ([]stats.IncomePeriodSummary, error)
	ComputePeriodAttendance(ctx context.Context, periodType stats.PeriodType, from, to time.Time) ([]stats.AttendancePeriodSummary, error)
	ComputeMemberCoverage(ctx context.Context, memberID string, from, to time.Time) (*stats.MemberCoverageReport, error)
}

type cacheEditor interface {
	Remove(ctx context.Context, key string)
	Clear(ctx context.Context)
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	applyConfigDefaults(&opts, cfg)
	log := logger.New(cfg.App.Env)

	ctx := context.Background()
	rt, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		return 2
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			log.Warn("close failed", "err", err)
		}
	}()

	start := time.Now()
	data, failed, err := report(ctx, rt.Aggregator, rt.Cache, opts)
	if err == nil && len(failed) > 0 {
		metrics.ObserveExport(opts.format, metrics.ResultError, time.Since(start))
	} else {
		metrics.ObserveExport(opts.format, metrics.ResultOf(err), time.Since(start))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		return 1
	}
	return emit(opts.out, data, failed, os.Stderr)
}

func parseFlags() (options, error) {
	var opts options
	flag.StringVar(&opts.configPath, "config", os.Getenv("COWORKING_CONFIG"), "config file (optional)")
	flag.StringVar(&opts.kind, "kind", "stats", "stats, usage, income, attendance or member")
	flag.StringVar(&opts.period, "period", "month", "day, week, month or year")
	flag.StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD)")
	flag.StringVar(&opts.to, "to", "", "last day (YYYY-MM-DD)")
	flag.StringVar(&opts.member, "member", "", "member id (kind=member)")
	flag.StringVar(&opts.format, "format", "csv", "csv, xlsx, pdf or json")
	flag.StringVar(&opts.out, "out", "-", "output file, - for stdout")
	flag.BoolVar(&opts.includesCurrent, "include-current", false, "include in-progress periods (kind=stats, default stats.includes_current)")
	flag.BoolVar(&opts.refresh, "refresh", false, "drop cached periods of the range before computing (kind=stats)")
	flag.BoolVar(&opts.clearCache, "clear-cache", false, "drop every cached period before computing")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "include-current" {
			opts.includesCurrentSet = true
		}
	})

	if opts.from == "" || opts.to == "" {
		return opts, errors.New("missing --from or --to")
	}
	if opts.kind == "member" && opts.member == "" {
		return opts, errors.New("missing --member")
	}
	return opts, nil
}

// applyConfigDefaults fills flags left unset on the command line.
func applyConfigDefaults(opts *options, cfg config.Config) {
	if !opts.includesCurrentSet {
		opts.includesCurrent = cfg.Stats.IncludesCurrent
	}
}

// report renders the requested export. Failed periods are returned by key
// next to the data of the periods that completed.
func report(ctx context.Context, comp computer, cache cacheEditor, opts options) ([]byte, []string, error) {
	if opts.clearCache && cache != nil {
		cache.Clear(ctx)
	} else if opts.refresh && opts.kind == "stats" && cache != nil {
		if err := dropCached(ctx, cache, opts); err != nil {
			return nil, nil, err
		}
	}
	data, err := render(ctx, comp, opts)
	if err == nil {
		return data, nil, nil
	}
	var perr *application.PeriodErrors
	if errors.As(err, &perr) && data != nil {
		return data, perr.Keys(), nil
	}
	return nil, nil, err
}

func dropCached(ctx context.Context, cache cacheEditor, opts options) error {
	query, err := application.ParseQuery(opts.period, opts.from, opts.to)
	if err != nil {
		return err
	}
	periods, err := stats.BuildPeriods(query.PeriodType, query.From, query.To)
	if err != nil {
		return err
	}
	for _, p := range periods {
		cache.Remove(ctx, p.Key())
	}
	return nil
}

// emit writes the report and returns the exit status: 1 when the output is
// partial or could not be written.
func emit(path string, data []byte, failed []string, stderr io.Writer) int {
	if err := writeOutput(path, data); err != nil {
		fmt.Fprintln(stderr, "write:", err)
		return 1
	}
	if len(failed) > 0 {
		fmt.Fprintf(stderr, "partial report: %d failed periods: %s\n", len(failed), strings.Join(failed, ","))
		return 1
	}
	return 0
}

func render(ctx context.Context, agg computer, opts options) ([]byte, error) {
	query, err := application.ParseQuery(opts.period, opts.from, opts.to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch opts.kind {
	case "stats":
		summaries, err := agg.ComputePeriodsStats(ctx, query.PeriodType, query.Options(opts.includesCurrent))
		if werr := encode(&buf, opts.format, summaries, func(w io.Writer) error { return interfaces.StatsCSV(w, summaries) }); werr != nil {
			return nil, werr
		}
		return buf.Bytes(), err
	case "usage":
		summaries, err := agg.ComputePeriodUsage(ctx, query.PeriodType, query.From, query.To)
		switch opts.format {
		case "xlsx":
			data, xerr := interfaces.BuildUsageXLSX(summaries)
			if xerr != nil {
				return nil, xerr
			}
			return data, err
		case "pdf":
			title := fmt.Sprintf("Usage %s to %s", ledger.FormatDate(query.From), ledger.FormatDate(query.To))
			data, perr := interfaces.BuildUsagePDF(title, summaries, time.Now().UTC())
			if perr != nil {
				return nil, perr
			}
			return data, err
		}
		if werr := encode(&buf, opts.format, summaries, func(w io.Writer) error { return interfaces.UsageCSV(w, summaries) }); werr != nil {
			return nil, werr
		}
		return buf.Bytes(), err
	case "income":
		summaries, err := agg.ComputePeriodIncome(ctx, query.PeriodType, query.From, query.To)
		if opts.format == "xlsx" {
			data, xerr := interfaces.BuildIncomeXLSX(summaries)
			if xerr != nil {
				return nil, xerr
			}
			return data, err
		}
		if werr := encode(&buf, opts.format, summaries, func(w io.Writer) error { return interfaces.IncomeCSV(w, summaries) }); werr != nil {
			return nil, werr
		}
		return buf.Bytes(), err
	case "attendance":
		summaries, err := agg.ComputePeriodAttendance(ctx, query.PeriodType, query.From, query.To)
		if werr := encode(&buf, opts.format, summaries, func(w io.Writer) error { return interfaces.AttendanceCSV(w, summaries) }); werr != nil {
			return nil, werr
		}
		return buf.Bytes(), err
	case "member":
		report, err := agg.ComputeMemberCoverage(ctx, opts.member, query.From, query.To)
		if err != nil {
			return nil, err
		}
		if err := encode(&buf, "json", report, nil); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", opts.kind)
	}
}

func encode(w io.Writer, format string, value any, writeCSV func(io.Writer) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "csv":
		if writeCSV == nil {
			return errors.New("csv is not available for this report")
		}
		return writeCSV(w)
	default:
		return fmt.Errorf("format %q is not available for this report", format)
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
