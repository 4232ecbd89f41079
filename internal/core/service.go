package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/basketfreq/internal/dataset"
	"github.com/JonMunkholm/basketfreq/internal/extract"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
	"github.com/JonMunkholm/basketfreq/internal/history"
	"github.com/JonMunkholm/basketfreq/internal/logging"
	"github.com/JonMunkholm/basketfreq/internal/metrics"
)

// RecordTimeout bounds how long an analysis waits on the history store.
var RecordTimeout = 5 * time.Second

// Options configures a Service.
type Options struct {
	// DatasetPath is the transaction file read by every analysis.
	DatasetPath string

	// Delimiter is the field separator; zero means dataset.DefaultDelimiter.
	Delimiter rune

	// TopN is the number of entries charted and recorded; zero means frequency.DefaultTopN.
	TopN int

	// History receives successful runs. Nil disables recording.
	History history.Store

	// MaxConcurrent and MaxWait configure the analysis limiter.
	MaxConcurrent int
	MaxWait       time.Duration
}

// Service runs the load, extract and count pipeline.
// It holds configuration only: every Analyze call starts from the file.
type Service struct {
	datasetPath string
	loadOpts    dataset.Options
	topN        int
	history     history.Store
	limiter     *AnalysisLimiter

	now func() time.Time
}

// NewService creates a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.DatasetPath == "" {
		return nil, errors.New("dataset path is required")
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = frequency.DefaultTopN
	}

	store := opts.History
	if store == nil {
		store = history.Nop{}
	}

	return &Service{
		datasetPath: opts.DatasetPath,
		loadOpts:    dataset.Options{Delimiter: opts.Delimiter},
		topN:        topN,
		history:     store,
		limiter:     NewAnalysisLimiter(opts.MaxConcurrent, opts.MaxWait),
		now:         time.Now,
	}, nil
}

// DatasetPath returns the configured dataset file.
func (s *Service) DatasetPath() string { return s.datasetPath }

// TopN returns the chart size.
func (s *Service) TopN() int { return s.topN }

// HistoryEnabled reports whether runs are being recorded.
func (s *Service) HistoryEnabled() bool { return history.Enabled(s.history) }

// Limiter exposes the analysis limiter for shutdown draining.
func (s *Service) Limiter() *AnalysisLimiter { return s.limiter }

// Analysis is the result of one pipeline run. It is owned by the caller.
type Analysis struct {
	RunID     string
	Dataset   string
	CreatedAt time.Time
	Duration  time.Duration

	// Rows is the number of data rows in the file.
	Rows int

	Extraction  *extract.Result
	Frequencies *frequency.Table

	// TopN is the chart size in effect for this run.
	TopN int

	// Recorded is set when the run was written to the history store.
	Recorded bool
}

// EmptyWarning is shown in place of the results when nothing was counted.
const EmptyWarning = "Nessun dato sulla frequenza da mostrare. Controlla la colonna degli articoli nel file CSV."

// Empty reports whether the occurrence list was empty.
func (a *Analysis) Empty() bool {
	return a == nil || a.Frequencies.Empty()
}

// Warning returns EmptyWarning for an empty analysis, "" otherwise.
func (a *Analysis) Warning() string {
	if a.Empty() {
		return EmptyWarning
	}
	return ""
}

// Top returns the charted entries.
func (a *Analysis) Top() []frequency.Entry {
	if a.Empty() {
		return nil
	}
	return a.Frequencies.Top(a.TopN)
}

// WriteCSV writes the full frequency table as the downloadable export.
// It returns frequency.ErrEmpty when there is nothing to export.
func (a *Analysis) WriteCSV(w io.Writer) error {
	if a.Empty() {
		return frequency.ErrEmpty
	}
	return a.Frequencies.WriteCSV(w)
}

// Analyze loads the dataset, extracts the item occurrences and computes the
// relative frequencies.
//
// Load failures and ErrNoItemData are returned as errors. An empty occurrence
// list is not an error: the returned Analysis reports Empty.
func (s *Service) Analyze(ctx context.Context) (*Analysis, error) {
	return s.analyze(ctx, true)
}

// Verify runs the same pipeline as Analyze without writing to the history
// store. The startup check uses it so a boot does not count as a run.
func (s *Service) Verify(ctx context.Context) (*Analysis, error) {
	return s.analyze(ctx, false)
}

func (s *Service) analyze(ctx context.Context, record bool) (*Analysis, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := logging.WithFields(ctx, "dataset", s.datasetPath)
	start := s.now()

	table, err := dataset.Load(s.datasetPath, s.loadOpts)
	if err != nil {
		metrics.ObserveRun(metrics.Run{Outcome: metrics.OutcomeLoadError, Duration: time.Since(start)})
		logger.Error("dataset load failed", "error", err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := extract.Extract(table)
	if err != nil {
		metrics.ObserveRun(metrics.Run{
			Outcome:   metrics.OutcomeNoItems,
			Duration:  time.Since(start),
			BytesRead: table.BytesRead,
		})
		logger.Warn("no item column found", "columns", table.NumColumns(), "tried", extract.Strategies())
		return nil, err
	}

	freq := frequency.Compute(res.Items)

	a := &Analysis{
		RunID:       uuid.NewString(),
		Dataset:     s.datasetPath,
		CreatedAt:   start,
		Duration:    time.Since(start),
		Rows:        table.NumRows(),
		Extraction:  res,
		Frequencies: freq,
		TopN:        s.topN,
	}

	outcome := metrics.OutcomeOK
	if a.Empty() {
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveRun(metrics.Run{
		Outcome:     outcome,
		Strategy:    res.Strategy,
		Duration:    a.Duration,
		BytesRead:   table.BytesRead,
		Occurrences: freq.Total,
		Products:    freq.Len(),
	})

	logger = logger.With("run_id", a.RunID, "strategy", res.Strategy)
	if a.Empty() {
		logger.Warn("item column holds no items", "columns", res.Columns)
		return a, nil
	}

	if record {
		a.Recorded = s.record(ctx, a)
	}

	logger.Info("analysis finished",
		"rows", a.Rows,
		"occurrences", freq.Total,
		"products", freq.Len(),
		"duration", a.Duration,
	)
	return a, nil
}

// record writes a to the history store. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, a *Analysis) bool {
	if !s.HistoryEnabled() {
		return false
	}

	top := a.Top()
	run := &history.Run{
		ID:           a.RunID,
		Dataset:      a.Dataset,
		Strategy:     a.Extraction.Strategy,
		Columns:      a.Extraction.Columns,
		Transactions: a.Extraction.Transactions,
		Occurrences:  a.Frequencies.Total,
		Products:     a.Frequencies.Len(),
		ClientIP:     ClientIPFromContext(ctx),
		CreatedAt:    a.CreatedAt,
		Top:          top,
	}
	if len(top) > 0 {
		run.TopProduct = top[0].Product
		run.TopRelative = top[0].Relative
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RecordTimeout)
	defer cancel()

	if err := s.history.Record(recCtx, run); err != nil {
		logging.FromContext(ctx).Warn("failed to record analysis run", "run_id", a.RunID, "error", err)
		return false
	}
	return true
}

// History returns up to limit recorded runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Run, error) {
	runs, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("history store unavailable: %w", err)
	}
	return runs, nil
}

// RunEntries returns the top entries recorded for runID.
func (s *Service) RunEntries(ctx context.Context, runID string) ([]frequency.Entry, error) {
	entries, err := s.history.Entries(ctx, runID)
	if errors.Is(err, history.ErrRunNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("history store unavailable: %w", err)
	}
	return entries, nil
}
