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

// TradeRecorder batches trades channel payloads into the trades table.
type TradeRecorder struct {
	cfg    Config
	logger *slog.Logger

	db *pgxpool.Pool

	// Batching
	batch       []model.TradeRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewTradeRecorder creates a new TradeRecorder.
func NewTradeRecorder(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *TradeRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeRecorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]model.TradeRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (r *TradeRecorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("trade recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the recorder down and flushes the remaining batch.
func (r *TradeRecorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping trade recorder")

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
		r.logger.Info("trade recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("trade recorder stop timed out")
	}

	// Final flush
	r.flush()

	return nil
}

// Stats returns current metrics.
func (r *TradeRecorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// Handle consumes one trades channel payload. It satisfies the stream
// handler signature and is registered per subscribed symbol.
func (r *TradeRecorder) Handle(channel, symbol string, data json.RawMessage) error {
	var trades []model.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		r.batchMu.Lock()
		r.metrics.Dropped++
		r.batchMu.Unlock()
		return fmt.Errorf("decode trades payload for %s: %w", symbol, err)
	}

	receivedAt := time.Now().UnixMilli()

	r.batchMu.Lock()
	for _, t := range trades {
		r.batch = append(r.batch, transformTrade(symbol, t, receivedAt))
	}
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
	return nil
}

// transformTrade converts a wire trade to a trades-table row.
func transformTrade(symbol string, t model.Trade, receivedAt int64) model.TradeRow {
	return model.TradeRow{
		Symbol:       symbol,
		ExchangeTS:   t.Ts,
		ReceivedAt:   receivedAt,
		Seq:          t.Seq,
		Price:        t.Price,
		Qty:          t.Qty,
		IsBuyerMaker: t.IsBuyerMaker,
	}
}

// flushLoop periodically flushes the batch.
func (r *TradeRecorder) flushLoop() {
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
func (r *TradeRecorder) flush() {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]model.TradeRow, 0, r.cfg.BatchSize)
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

	r.logger.Debug("flushed trades",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
// It runs under its own timeout so the final flush survives shutdown.
func (r *TradeRecorder) batchInsert(rows []model.TradeRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO trades (symbol, exchange_ts, received_at, seq, price, qty, is_buyer_maker)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (symbol, seq) DO NOTHING
		`, row.Symbol, row.ExchangeTS, row.ReceivedAt, row.Seq, row.Price, row.Qty, row.IsBuyerMaker)
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
