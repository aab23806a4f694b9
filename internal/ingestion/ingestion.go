package ingestion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/spimexpulse/internal/bulletin"
	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/logger"
	"github.com/guttosm/spimexpulse/internal/storage"
)

// ErrIngestionFailed wraps every error that aborts a run.
var ErrIngestionFailed = errors.New("ingestion failed")

// BulletinFetcher downloads the bulletins of the given dates into a workspace.
type BulletinFetcher interface {
	Fetch(ctx context.Context, ws *bulletin.Workspace, dates []time.Time) ([]bulletin.FetchResult, error)
}

// Config tunes a Coordinator.
//
// Fields:
//   - Location: zone deciding what "today" is (nil = UTC).
//   - MaxWindowDays: upper bound on the number of dates per run (0 = unbounded).
//   - TempDir: parent directory of the per-run workspaces ("" = os.TempDir()).
//   - Timeout: upper bound on one run, independent of its callers (0 = DefaultRunTimeout).
type Config struct {
	Location      *time.Location
	MaxWindowDays int
	TempDir       string
	Timeout       time.Duration
}

// DefaultRunTimeout bounds a run when Config.Timeout is unset.
const DefaultRunTimeout = 5 * time.Minute

// RunOptions alters a single run.
type RunOptions struct {
	// Force re-ingests dates that already have records, replacing them.
	Force bool
}

// Summary reports what a run did.
type Summary struct {
	WindowStart         time.Time
	WindowEnd           time.Time
	DatesRequested      int
	DatesSkipped        int
	BulletinsDownloaded int
	BulletinsMissing    int
	RecordsInserted     int
}

// Coordinator runs the ingestion pipeline: window, dedupe, fetch, parse, build, commit.
//
// Only one run executes at a time per process; concurrent calls for the same window share
// the result of the run in flight. A run is not tied to any one caller: a caller whose
// context ends stops waiting, while the run goes on for the callers still joined to it.
type Coordinator struct {
	repo    storage.TradingResultsRepository
	fetcher BulletinFetcher
	cfg     Config

	// indirections for tests
	now          func() time.Time
	readSheet    func(path string) (bulletin.Sheet, error)
	newWorkspace func(base string) (*bulletin.Workspace, error)

	mu    sync.Mutex
	group singleflight.Group
}

func NewCoordinator(repo storage.TradingResultsRepository, fetcher BulletinFetcher, cfg Config) *Coordinator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRunTimeout
	}
	return &Coordinator{
		repo:         repo,
		fetcher:      fetcher,
		cfg:          cfg,
		now:          time.Now,
		readSheet:    bulletin.ReadSheet,
		newWorkspace: bulletin.NewWorkspace,
	}
}

// Run ingests every bulletin from today back to targetDate.
//
// Behavior:
//   - Dates that already have records are skipped unless opts.Force.
//   - A date without a published bulletin is a non-trading day and is skipped.
//   - A failed download, an unreadable bulletin or a store error aborts the whole run;
//     nothing is committed.
//   - Everything that is committed is committed in one transaction.
//   - Downloaded files are removed on every exit path.
//
// Errors wrap ErrIngestionFailed (and ErrInvalidWindow for a bad target date).
func (c *Coordinator) Run(ctx context.Context, targetDate time.Time, opts RunOptions) (*Summary, error) {
	log := logger.Ctx(ctx)
	key := fmt.Sprintf("%s:%t", models.DateOf(targetDate).Format(models.DateLayout), opts.Force)
	ch := c.group.DoChan(key, func() (v interface{}, err error) {
		// DoChan re-panics on its own goroutine, out of reach of any recovery middleware
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, fail(log, fmt.Errorf("panic: %v", r))
			}
		}()

		// keeps the first caller's values (request id) but not its deadline
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		return c.run(runCtx, targetDate, opts)
	})

	select {
	case <-ctx.Done():
		return nil, fail(log, fmt.Errorf("wait for ingestion %s: %w", key, ctx.Err()))
	case res := <-ch:
		if res.Shared {
			log.Info().Str("key", key).Msg("joined ingestion already in flight")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Summary), nil
	}
}

func (c *Coordinator) run(ctx context.Context, targetDate time.Time, opts RunOptions) (*Summary, error) {
	start := time.Now()
	log := logger.Ctx(ctx)
	today := models.DateOf(c.now().In(c.cfg.Location))

	window, err := DateWindow(targetDate, today, c.cfg.MaxWindowDays)
	if err != nil {
		return nil, fail(log, err)
	}
	sum := &Summary{
		WindowStart:    window[len(window)-1],
		WindowEnd:      window[0],
		DatesRequested: len(window),
	}
	log.Info().
		Str("from", sum.WindowStart.Format(models.DateLayout)).
		Str("to", sum.WindowEnd.Format(models.DateLayout)).
		Int("dates", len(window)).Bool("force", opts.Force).
		Msg("ingestion start")

	pending, err := c.pendingDates(ctx, window, opts.Force)
	if err != nil {
		return nil, fail(log, err)
	}
	sum.DatesSkipped = len(window) - len(pending)
	if len(pending) == 0 {
		log.Info().Int("skipped", sum.DatesSkipped).Msg("ingestion: nothing to fetch")
		return sum, nil
	}

	ws, err := c.newWorkspace(c.cfg.TempDir)
	if err != nil {
		return nil, fail(log, err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("workspace cleanup failed")
		}
	}()

	fetched, err := c.fetcher.Fetch(ctx, ws, pending)
	if err != nil {
		return nil, fail(log, fmt.Errorf("fetch bulletins: %w", err))
	}

	var downloaded []bulletin.FetchResult
	for _, res := range fetched {
		switch res.Status {
		case bulletin.FetchDownloaded:
			downloaded = append(downloaded, res)
		case bulletin.FetchNotFound:
			sum.BulletinsMissing++
			log.Debug().Str("date", res.Date.Format(models.DateLayout)).Msg("no bulletin published")
		default:
			return nil, fail(log, fmt.Errorf("fetch bulletin for %s: %w", res.Date.Format(models.DateLayout), res.Err))
		}
	}
	sum.BulletinsDownloaded = len(downloaded)

	batch, err := c.buildBatch(log, downloaded, opts.Force)
	if err != nil {
		return nil, fail(log, err)
	}
	if err := c.repo.SaveIngestionBatch(ctx, batch); err != nil {
		return nil, fail(log, fmt.Errorf("commit batch: %w", err))
	}
	sum.RecordsInserted = len(batch.Results)

	log.Info().
		Int("requested", sum.DatesRequested).
		Int("skipped", sum.DatesSkipped).
		Int("downloaded", sum.BulletinsDownloaded).
		Int("missing", sum.BulletinsMissing).
		Int("records", sum.RecordsInserted).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion done")
	return sum, nil
}

// pendingDates drops the dates that already have records, unless force is set.
func (c *Coordinator) pendingDates(ctx context.Context, window []time.Time, force bool) ([]time.Time, error) {
	log := logger.Ctx(ctx)
	if force {
		return slices.Clone(window), nil
	}
	pending := make([]time.Time, 0, len(window))
	for _, d := range window {
		exists, err := c.repo.HasResultsForDate(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("check existing results for %s: %w", d.Format(models.DateLayout), err)
		}
		if exists {
			log.Debug().Str("date", d.Format(models.DateLayout)).Msg("already ingested")
			continue
		}
		pending = append(pending, d)
	}
	return pending, nil
}

// buildBatch parses the downloaded bulletins oldest first into one batch.
func (c *Coordinator) buildBatch(log *zerolog.Logger, downloaded []bulletin.FetchResult, force bool) (models.IngestionBatch, error) {
	slices.SortFunc(downloaded, func(a, b bulletin.FetchResult) int { return a.Date.Compare(b.Date) })

	var batch models.IngestionBatch
	for _, res := range downloaded {
		day := res.Date.Format(models.DateLayout)
		sheet, err := c.readSheet(res.Path)
		if err != nil {
			return batch, fmt.Errorf("read bulletin for %s: %w", day, err)
		}

		n := 0
		for row, err := range bulletin.Rows(sheet) {
			if err != nil {
				return batch, fmt.Errorf("parse bulletin for %s: %w", day, err)
			}
			batch.Results = append(batch.Results, bulletin.Build(row, res.Date))
			n++
		}

		batch.Bulletins = append(batch.Bulletins, models.BulletinLog{FileDate: res.Date, SourceURL: res.URL, RowCount: n})
		if force {
			batch.ReplaceDates = append(batch.ReplaceDates, res.Date)
		}
		log.Info().Str("date", day).Int("rows", n).Msg("bulletin parsed")
	}
	return batch, nil
}

// fail logs err once and wraps it; callers up the stack only map it to a response.
func fail(log *zerolog.Logger, err error) error {
	log.Error().Err(err).Msg("ingestion failed")
	return fmt.Errorf("%w: %w", ErrIngestionFailed, err)
}
