// Command order-report exports aggregated order totals as JSON lines, one
// file per interval.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/export"
	"github.com/xenking/storefront/internal/repository"
)

type options struct {
	databaseURL string
	outDir      string
	from, to    string
	intervals   string
	gzip        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.outDir, "out", ".", "output directory")
	flag.StringVar(&opts.from, "from", "", "first day of the report, YYYY-MM-DD (default 30 days ago)")
	flag.StringVar(&opts.to, "to", "", "last day of the report, YYYY-MM-DD (default today)")
	flag.StringVar(&opts.intervals, "interval", "day,month", "comma separated intervals: day, month, year")
	flag.BoolVar(&opts.gzip, "gzip", true, "compress output files")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		return run(ctx, lg, opts)
	})
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	if opts.databaseURL == "" {
		return errors.New("database URL is required: set --database-url or DATABASE_URL")
	}
	from, to, err := reportRange(opts.from, opts.to, time.Now())
	if err != nil {
		return err
	}
	var intervals []order.Interval
	for _, s := range strings.Split(opts.intervals, ",") {
		i, ok := order.ParseInterval(strings.TrimSpace(s))
		if !ok {
			return errors.Errorf("unknown interval %q", s)
		}
		intervals = append(intervals, i)
	}

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	reports := order.NewReportService(repository.NewOrderRepository(pool))

	g, ctx := errgroup.WithContext(ctx)
	for _, interval := range intervals {
		g.Go(func() error {
			res := reports.GetOrderReport(ctx, from, to, interval)
			if !res.OK() {
				return errors.Errorf("%s report: %s", interval, res.Message())
			}
			path, err := writeFile(opts.outDir, interval, res.Value(), opts.gzip)
			if err != nil {
				return errors.Wrapf(err, "%s report", interval)
			}
			lg.Info("Report written",
				zap.Stringer("interval", interval),
				zap.Int("periods", len(res.Value())),
				zap.String("path", path),
			)
			return nil
		})
	}
	return g.Wait()
}

// reportRange parses the inclusive day range, defaulting to the last 30 days.
func reportRange(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	to := now.UTC()
	if toStr != "" {
		t, err := time.Parse(time.DateOnly, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "parse to")
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	from := to.AddDate(0, 0, -30)
	if fromStr != "" {
		t, err := time.Parse(time.DateOnly, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "parse from")
		}
		from = t
	}
	return from, to, nil
}

func writeFile(dir string, interval order.Interval, rows []order.ReportRow, gzip bool) (string, error) {
	name := "orders-" + interval.String() + ".jsonl"
	if gzip {
		name += ".gz"
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create file")
	}
	write := export.WriteReport
	if gzip {
		write = export.WriteReportGzip
	}
	if err := write(f, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close file")
	}
	return path, nil
}
