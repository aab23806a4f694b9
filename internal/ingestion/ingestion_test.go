package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guttosm/spimexpulse/internal/bulletin"
	"github.com/guttosm/spimexpulse/internal/domain/models"
)

var testToday = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return models.DateOf(testToday).AddDate(0, 0, -offset)
}

// fakeRepo implements storage.TradingResultsRepository for coordinator tests.
type fakeRepo struct {
	mu      sync.Mutex
	has     map[time.Time]bool
	hasErr  error
	saveErr error
	saved   []models.IngestionBatch
}

func (f *fakeRepo) HasResultsForDate(_ context.Context, d time.Time) (bool, error) {
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.has[d], nil
}

func (f *fakeRepo) SaveIngestionBatch(_ context.Context, b models.IngestionBatch) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, b)
	return nil
}

func (f *fakeRepo) GetResultsInPeriod(context.Context, time.Time, time.Time, models.ResultsFilter) ([]models.TradingResult, error) {
	return nil, nil
}
func (f *fakeRepo) GetLastTradeDate(context.Context) (*time.Time, error) { return nil, nil }
func (f *fakeRepo) GetResultsForDate(context.Context, time.Time, models.ResultsFilter) ([]models.TradingResult, error) {
	return nil, nil
}
func (f *fakeRepo) GetTradingDatesSince(context.Context, time.Time, time.Time) ([]time.Time, error) {
	return nil, nil
}

// fakeFetcher answers from a per-date status table (default: not found) and writes a
// placeholder file for every downloaded date.
type fakeFetcher struct {
	status map[time.Time]bulletin.FetchStatus
	err    error
	delay  time.Duration

	// when release is set, Fetch closes started and blocks until release or ctx ends
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once

	mu       sync.Mutex
	requests [][]time.Time
	wsDirs   []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, ws *bulletin.Workspace, dates []time.Time) ([]bulletin.FetchResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	if f.release != nil {
		f.startOnce.Do(func() { close(f.started) })
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, dates)
	f.wsDirs = append(f.wsDirs, ws.Dir())
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	out := make([]bulletin.FetchResult, 0, len(dates))
	for _, d := range dates {
		res := bulletin.FetchResult{Date: d, URL: "http://exchange/" + d.Format("20060102"), Status: bulletin.FetchNotFound}
		if st, ok := f.status[d]; ok {
			res.Status = st
		}
		switch res.Status {
		case bulletin.FetchDownloaded:
			res.Path = ws.PathFor(d)
			if err := os.WriteFile(res.Path, []byte("xls"), 0o600); err != nil {
				return nil, err
			}
		case bulletin.FetchFailed:
			res.Err = errors.New("503 after retries")
		}
		out = append(out, res)
	}
	return out, nil
}

// sheetWithCounts builds a bulletin grid with one trade per count.
func sheetWithCounts(counts ...string) bulletin.Sheet {
	rows := [][]string{
		{"", "Бюллетень по итогам торгов"},
		{"", bulletin.AnchorMarker},
		{"", "Код Инструмента", "Наименование", "Базис поставки", "Объем", "Обьем договоров", "Количество"},
	}
	for i, c := range counts {
		rows = append(rows, []string{"", fmt.Sprintf("A59%dUFM060F", i), "Бензин", "ст. Уфа", "60", "3624000", c})
	}
	rows = append(rows, []string{"", "Итого:", "", "", "", "", "99"}, []string{"", "Итого по секции:", "", "", "", "", "99"})
	return bulletin.NewSheet(rows)
}

func newTestCoordinator(t *testing.T, repo *fakeRepo, f *fakeFetcher, sheets map[time.Time]bulletin.Sheet) *Coordinator {
	t.Helper()
	c := NewCoordinator(repo, f, Config{Location: time.UTC, MaxWindowDays: 31, TempDir: t.TempDir()})
	c.now = func() time.Time { return testToday }
	c.readSheet = func(path string) (bulletin.Sheet, error) {
		for d, s := range sheets {
			if filepath.Base(path) == d.Format("20060102")+"_oil_data.xls" {
				return s, nil
			}
		}
		return nil, fmt.Errorf("unexpected path %s", path)
	}
	return c
}

func assertWorkspacesRemoved(t *testing.T, f *fakeFetcher) {
	t.Helper()
	for _, dir := range f.wsDirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Fatalf("workspace %s still present (err=%v)", dir, err)
		}
	}
}

func TestRun_TodayWithoutBulletinSucceeds(t *testing.T) {
	repo := &fakeRepo{}
	f := &fakeFetcher{}
	c := newTestCoordinator(t, repo, f, nil)

	sum, err := c.Run(context.Background(), testToday, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RecordsInserted != 0 || sum.BulletinsMissing != 1 || sum.DatesRequested != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	assertWorkspacesRemoved(t, f)
}

func TestRun_BuildsOneAscendingBatch(t *testing.T) {
	repo := &fakeRepo{}
	f := &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{
		day(0): bulletin.FetchDownloaded,
		day(2): bulletin.FetchDownloaded,
	}}
	sheets := map[time.Time]bulletin.Sheet{
		day(0): sheetWithCounts("1", "2"),
		day(2): sheetWithCounts("3", "0", "1", "2", "1", "4", "0", "1", "1", "2"),
	}
	c := newTestCoordinator(t, repo, f, sheets)

	sum, err := c.Run(context.Background(), day(3), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.DatesRequested != 4 || sum.BulletinsDownloaded != 2 || sum.BulletinsMissing != 2 || sum.RecordsInserted != 10 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !sum.WindowStart.Equal(day(3)) || !sum.WindowEnd.Equal(day(0)) {
		t.Fatalf("unexpected window: %v..%v", sum.WindowStart, sum.WindowEnd)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("want exactly one commit, got %d", len(repo.saved))
	}
	b := repo.saved[0]
	if len(b.Results) != 10 || len(b.ReplaceDates) != 0 {
		t.Fatalf("unexpected batch: %d results, %d replaces", len(b.Results), len(b.ReplaceDates))
	}
	for i := 1; i < len(b.Results); i++ {
		if b.Results[i].Date.Before(b.Results[i-1].Date) {
			t.Fatalf("results not in ascending date order at %d", i)
		}
	}
	if !b.Results[0].Date.Equal(day(2)) || b.Results[0].OilID != "A590" || b.Results[0].DeliveryBasisID != "UFM" {
		t.Fatalf("unexpected first record: %+v", b.Results[0])
	}
	if len(b.Bulletins) != 2 || b.Bulletins[0].RowCount != 8 || b.Bulletins[1].RowCount != 2 {
		t.Fatalf("unexpected bulletin log: %+v", b.Bulletins)
	}
	assertWorkspacesRemoved(t, f)
}

func TestRun_SkipsDatesAlreadyPresent(t *testing.T) {
	repo := &fakeRepo{has: map[time.Time]bool{day(1): true, day(2): true}}
	f := &fakeFetcher{}
	c := newTestCoordinator(t, repo, f, nil)

	sum, err := c.Run(context.Background(), day(3), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DatesSkipped != 2 {
		t.Fatalf("want 2 skipped, got %+v", sum)
	}
	if len(f.requests) != 1 || len(f.requests[0]) != 2 {
		t.Fatalf("unexpected fetch requests: %v", f.requests)
	}
	for _, d := range f.requests[0] {
		if repo.has[d] {
			t.Fatalf("fetched a date that was already present: %v", d)
		}
	}
}

func TestRun_NothingPendingDoesNotFetch(t *testing.T) {
	repo := &fakeRepo{has: map[time.Time]bool{day(0): true, day(1): true}}
	f := &fakeFetcher{}
	c := newTestCoordinator(t, repo, f, nil)

	sum, err := c.Run(context.Background(), day(1), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DatesSkipped != 2 || len(f.requests) != 0 || len(repo.saved) != 0 {
		t.Fatalf("unexpected activity: sum=%+v fetches=%d saves=%d", sum, len(f.requests), len(repo.saved))
	}
}

func TestRun_ForceReplacesExistingDates(t *testing.T) {
	repo := &fakeRepo{has: map[time.Time]bool{day(0): true, day(1): true}}
	f := &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(1): bulletin.FetchDownloaded}}
	c := newTestCoordinator(t, repo, f, map[time.Time]bulletin.Sheet{day(1): sheetWithCounts("5")})

	sum, err := c.Run(context.Background(), day(1), RunOptions{Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DatesSkipped != 0 || len(f.requests[0]) != 2 {
		t.Fatalf("force must fetch every date: sum=%+v requests=%v", sum, f.requests)
	}
	b := repo.saved[0]
	if len(b.ReplaceDates) != 1 || !b.ReplaceDates[0].Equal(day(1)) {
		t.Fatalf("want day(1) replaced, got %v", b.ReplaceDates)
	}
}

func TestRun_AbortsWithoutCommit(t *testing.T) {
	noAnchor := bulletin.NewSheet([][]string{{"", "nothing here"}, {"", "x"}})
	malformed := sheetWithCounts("1", "abc")

	cases := []struct {
		name    string
		repo    *fakeRepo
		fetcher *fakeFetcher
		sheets  map[time.Time]bulletin.Sheet
		wantErr error
	}{
		{
			name:    "failed download",
			repo:    &fakeRepo{},
			fetcher: &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(0): bulletin.FetchDownloaded, day(1): bulletin.FetchFailed}},
			sheets:  map[time.Time]bulletin.Sheet{day(0): sheetWithCounts("1")},
		},
		{
			name:    "fetch cancelled",
			repo:    &fakeRepo{},
			fetcher: &fakeFetcher{err: context.Canceled},
			wantErr: context.Canceled,
		},
		{
			name:    "missing anchor",
			repo:    &fakeRepo{},
			fetcher: &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(1): bulletin.FetchDownloaded}},
			sheets:  map[time.Time]bulletin.Sheet{day(1): noAnchor},
			wantErr: bulletin.ErrAnchorNotFound,
		},
		{
			name:    "malformed count",
			repo:    &fakeRepo{},
			fetcher: &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(1): bulletin.FetchDownloaded}},
			sheets:  map[time.Time]bulletin.Sheet{day(1): malformed},
			wantErr: bulletin.ErrMalformedRow,
		},
		{
			name:    "unreadable file",
			repo:    &fakeRepo{},
			fetcher: &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(1): bulletin.FetchDownloaded}},
			sheets:  map[time.Time]bulletin.Sheet{},
		},
		{
			name:    "commit error",
			repo:    &fakeRepo{saveErr: errors.New("deadlock detected")},
			fetcher: &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(1): bulletin.FetchDownloaded}},
			sheets:  map[time.Time]bulletin.Sheet{day(1): sheetWithCounts("1")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCoordinator(t, tc.repo, tc.fetcher, tc.sheets)

			sum, err := c.Run(context.Background(), day(1), RunOptions{})
			if !errors.Is(err, ErrIngestionFailed) {
				t.Fatalf("want ErrIngestionFailed, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v in chain, got %v", tc.wantErr, err)
			}
			if sum != nil {
				t.Fatalf("no summary expected on failure, got %+v", sum)
			}
			if len(tc.repo.saved) != 0 {
				t.Fatalf("nothing may be committed, got %d batches", len(tc.repo.saved))
			}
			assertWorkspacesRemoved(t, tc.fetcher)
		})
	}
}

func TestRun_ExistenceCheckErrorAborts(t *testing.T) {
	f := &fakeFetcher{}
	c := newTestCoordinator(t, &fakeRepo{hasErr: errors.New("connection refused")}, f, nil)

	if _, err := c.Run(context.Background(), day(2), RunOptions{}); !errors.Is(err, ErrIngestionFailed) {
		t.Fatalf("want ErrIngestionFailed, got %v", err)
	}
	if len(f.requests) != 0 {
		t.Fatalf("nothing should be fetched")
	}
}

func TestRun_InvalidWindow(t *testing.T) {
	c := newTestCoordinator(t, &fakeRepo{}, &fakeFetcher{}, nil)

	_, err := c.Run(context.Background(), testToday.AddDate(0, 0, 1), RunOptions{})
	if !errors.Is(err, ErrInvalidWindow) || !errors.Is(err, ErrIngestionFailed) {
		t.Fatalf("want ErrInvalidWindow wrapped in ErrIngestionFailed, got %v", err)
	}

	_, err = c.Run(context.Background(), testToday.AddDate(0, 0, -40), RunOptions{})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("window above MaxWindowDays must fail, got %v", err)
	}
}

func TestRun_TodayFollowsConfiguredZone(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	f := &fakeFetcher{}
	c := newTestCoordinator(t, &fakeRepo{}, f, nil)
	c.cfg.Location = msk
	// 22:00 UTC is already the next day in Moscow
	c.now = func() time.Time { return time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC) }

	sum, err := c.Run(context.Background(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DatesRequested != 2 || !sum.WindowEnd.Equal(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window: %+v", sum)
	}
}

func TestRun_ConcurrentRunsDoNotOverlap(t *testing.T) {
	f := &fakeFetcher{delay: 10 * time.Millisecond}
	c := newTestCoordinator(t, &fakeRepo{}, f, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			_, err := c.Run(context.Background(), day(offset), RunOptions{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if got := f.maxSeen.Load(); got != 1 {
		t.Fatalf("runs overlapped: %d fetches in flight at once", got)
	}
	if len(f.requests) != 5 {
		t.Fatalf("want 5 distinct runs, got %d", len(f.requests))
	}
}

func TestRun_CancelledCallerDoesNotFailJoinedCaller(t *testing.T) {
	f := &fakeFetcher{started: make(chan struct{}), release: make(chan struct{})}
	c := newTestCoordinator(t, &fakeRepo{}, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, day(2), RunOptions{})
		firstErr <- err
	}()
	<-f.started

	type result struct {
		sum *Summary
		err error
	}
	second := make(chan result, 1)
	go func() {
		sum, err := c.Run(context.Background(), day(2), RunOptions{})
		second <- result{sum, err}
	}()
	// let the second caller join the run in flight
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, ErrIngestionFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: want ErrIngestionFailed wrapping context.Canceled, got %v", err)
	}

	close(f.release)
	got := <-second
	if got.err != nil {
		t.Fatalf("joined caller failed: %v", got.err)
	}
	if got.sum.DatesRequested != 3 {
		t.Fatalf("DatesRequested = %d, want 3", got.sum.DatesRequested)
	}
	if len(f.requests) != 1 {
		t.Fatalf("want one shared fetch, got %d", len(f.requests))
	}
	assertWorkspacesRemoved(t, f)
}

func TestRun_RunTimeout(t *testing.T) {
	f := &fakeFetcher{started: make(chan struct{}), release: make(chan struct{})}
	c := newTestCoordinator(t, &fakeRepo{}, f, nil)
	c.cfg.Timeout = 20 * time.Millisecond

	_, err := c.Run(context.Background(), day(1), RunOptions{})
	if !errors.Is(err, ErrIngestionFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want ErrIngestionFailed wrapping context.DeadlineExceeded, got %v", err)
	}
}

func TestNewCoordinator_DefaultTimeout(t *testing.T) {
	c := NewCoordinator(&fakeRepo{}, &fakeFetcher{}, Config{})
	if c.cfg.Timeout != DefaultRunTimeout {
		t.Fatalf("Timeout = %v, want %v", c.cfg.Timeout, DefaultRunTimeout)
	}
	if c.cfg.Location != time.UTC {
		t.Fatalf("Location = %v, want UTC", c.cfg.Location)
	}
}

func TestRun_PanicBecomesError(t *testing.T) {
	f := &fakeFetcher{status: map[time.Time]bulletin.FetchStatus{day(0): bulletin.FetchDownloaded}}
	c := newTestCoordinator(t, &fakeRepo{}, f, nil)
	c.readSheet = func(string) (bulletin.Sheet, error) { panic("decoder bug") }

	_, err := c.Run(context.Background(), day(0), RunOptions{})
	if !errors.Is(err, ErrIngestionFailed) {
		t.Fatalf("want ErrIngestionFailed, got %v", err)
	}
	assertWorkspacesRemoved(t, f)
}
