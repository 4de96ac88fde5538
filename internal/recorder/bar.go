package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelez/ascendex-stream/internal/model"
)

// BarRecorder batches bar channel payloads into the bars table. The
// bar channel delivers whole frames; the candle sits under "data".
type BarRecorder struct {
	cfg    Config
	logger *slog.Logger

	db *pgxpool.Pool

	batch       []model.BarRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewBarRecorder creates a new BarRecorder.
func NewBarRecorder(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *BarRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &BarRecorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]model.BarRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (r *BarRecorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("bar recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the recorder down and flushes the remaining batch.
func (r *BarRecorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping bar recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("bar recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("bar recorder stop timed out")
	}

	r.flush()

	return nil
}

// Stats returns current metrics.
func (r *BarRecorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// barFrame is the whole-frame payload the bar channel delivers.
type barFrame struct {
	Symbol string    `json:"s"`
	Data   model.Bar `json:"data"`
}

// Handle consumes one bar channel payload. It satisfies the stream
// handler signature.
func (r *BarRecorder) Handle(channel, symbol string, data json.RawMessage) error {
	var frame barFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		r.batchMu.Lock()
		r.metrics.Dropped++
		r.batchMu.Unlock()
		return fmt.Errorf("decode bar payload for %s: %w", symbol, err)
	}
	if frame.Symbol == "" {
		frame.Symbol = symbol
	}

	row := transformBar(frame, time.Now().UnixMilli())

	r.batchMu.Lock()
	r.batch = append(r.batch, row)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
	return nil
}

// transformBar converts a bar frame to a bars-table row.
func transformBar(frame barFrame, receivedAt int64) model.BarRow {
	return model.BarRow{
		Symbol:     frame.Symbol,
		Interval:   frame.Data.Interval,
		Ts:         frame.Data.Ts,
		ReceivedAt: receivedAt,
		Open:       frame.Data.Open,
		Close:      frame.Data.Close,
		High:       frame.Data.High,
		Low:        frame.Data.Low,
		Volume:     frame.Data.Volume,
	}
}

func (r *BarRecorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

// flush writes the current batch to the database.
func (r *BarRecorder) flush() {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	batch := r.batch
	r.batch = make([]model.BarRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	conflicts, err := r.batchInsert(batch)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch) - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed bars",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (r *BarRecorder) batchInsert(rows []model.BarRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO bars (symbol, interval, ts, received_at, open, close, high, low, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (symbol, interval, ts) DO NOTHING
		`, row.Symbol, row.Interval, row.Ts, row.ReceivedAt, row.Open, row.Close, row.High, row.Low, row.Volume)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
