package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	pkgch "PairFlow/pkg/clickhouse"
	applogger "PairFlow/pkg/logger"
)

// ClickHouseTickStore implements TickStore backed by ClickHouse. Ticks land
// in an append-only MergeTree; bars go to a ReplacingMergeTree keyed on
// (symbol, timeframe, bucket) so re-aggregating a bucket replaces it. Writes
// are serialized behind a mutex; reads run lock-free against the pool.
type ClickHouseTickStore struct {
	db       *sql.DB
	database string
	mu       sync.Mutex
	acc      domrepo.Accelerator
	l        *applogger.Logger
}

func NewClickHouseTickStore(ch *pkgch.Client, database string) *ClickHouseTickStore {
	if database == "" {
		database = "pairflow"
	}
	return &ClickHouseTickStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *ClickHouseTickStore) SetLogger(l *applogger.Logger) { s.l = l }

// SetAccelerator attaches an optional fast-access layer. All accelerator
// traffic is best-effort; failures never surface to callers.
func (s *ClickHouseTickStore) SetAccelerator(acc domrepo.Accelerator) { s.acc = acc }

// Accelerator returns the attached fast-access layer, nil if none.
func (s *ClickHouseTickStore) Accelerator() domrepo.Accelerator { return s.acc }

func (s *ClickHouseTickStore) ticksTable() string { return s.database + ".ticks" }
func (s *ClickHouseTickStore) barsTable() string  { return s.database + ".bars" }

func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            ts DateTime64(3),
            symbol LowCardinality(String),
            price Float64,
            size Float64,
            created_at DateTime DEFAULT now()
        ) ENGINE = MergeTree
        ORDER BY (symbol, ts)`, s.ticksTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            bucket DateTime,
            symbol LowCardinality(String),
            timeframe LowCardinality(String),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            volume Float64,
            trades UInt64,
            updated_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (symbol, timeframe, bucket)`, s.barsTable()),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseTickStore) StoreTick(ctx context.Context, t *models.Tick) error {
	if t == nil || t.Symbol == "" {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, size) VALUES (?, ?, ?, ?)", s.ticksTable())

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, q, t.Timestamp, t.Symbol, t.Price, t.Size)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("store tick: %w", err)
	}

	if s.acc != nil {
		if aerr := s.acc.AddTick(ctx, t); aerr != nil && s.l != nil {
			s.l.Warn("accelerator add tick failed", applogger.String("symbol", t.Symbol), applogger.Error(aerr))
		}
	}
	return nil
}

func (s *ClickHouseTickStore) StoreTickBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, t.Timestamp, t.Symbol, t.Price, t.Size)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, size) VALUES %s", s.ticksTable(), strings.Join(values, ","))

		s.mu.Lock()
		_, err := s.db.ExecContext(ctx, q, args...)
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("store tick batch: %w", err)
		}
	}

	if s.acc != nil {
		for _, t := range ticks {
			if t == nil {
				continue
			}
			if aerr := s.acc.AddTick(ctx, t); aerr != nil {
				if s.l != nil {
					s.l.Warn("accelerator add tick failed", applogger.String("symbol", t.Symbol), applogger.Error(aerr))
				}
				break
			}
		}
	}
	return nil
}

// GetTicks returns ticks ascending by timestamp. The limit keeps the most
// recent rows: the query reads DESC with LIMIT, then reverses.
func (s *ClickHouseTickStore) GetTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Tick, error) {
	start := time.Now()

	where := []string{"symbol = ?"}
	args := []interface{}{symbol}
	if !from.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, to)
	}
	q := fmt.Sprintf("SELECT ts, symbol, price, size FROM %s WHERE %s ORDER BY ts DESC",
		s.ticksTable(), strings.Join(where, " AND "))
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_ticks query error", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return nil, fmt.Errorf("get ticks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tick, 0, 1024)
	for rows.Next() {
		var t models.Tick
		if err := rows.Scan(&t.Timestamp, &t.Symbol, &t.Price, &t.Size); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	if s.l != nil {
		s.l.Debug("clickhouse get_ticks ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// StoreBars upserts bars for one symbol and timeframe. The ReplacingMergeTree
// key makes repeated writes of a bucket converge to the latest version.
func (s *ClickHouseTickStore) StoreBars(ctx context.Context, symbol string, tf domrepo.Timeframe, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*9)
	now := time.Now()
	for _, b := range bars {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.Bucket, symbol, string(tf), b.Open, b.High, b.Low, b.Close, b.Volume, b.TradeCount, now)
	}
	q := fmt.Sprintf("INSERT INTO %s (bucket, symbol, timeframe, open, high, low, close, volume, trades, updated_at) VALUES %s",
		s.barsTable(), strings.Join(values, ","))

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, q, args...)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("store bars: %w", err)
	}

	if s.acc != nil {
		if aerr := s.acc.SetBars(ctx, symbol, tf, bars); aerr != nil && s.l != nil {
			s.l.Warn("accelerator set bars failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(aerr),
			)
		}
	}
	return nil
}

// GetBars returns bars ascending by bucket. FINAL collapses replaced bucket
// versions so callers only ever see the latest write. Reads always hit
// ClickHouse: the accelerator blob holds whatever window the last StoreBars
// wrote, not the full history, so serving it here would truncate every
// downstream computation.
func (s *ClickHouseTickStore) GetBars(ctx context.Context, symbol string, tf domrepo.Timeframe, from time.Time) ([]models.Bar, error) {
	start := time.Now()
	where := []string{"symbol = ?", "timeframe = ?"}
	args := []interface{}{symbol, string(tf)}
	if !from.IsZero() {
		where = append(where, "bucket >= ?")
		args = append(args, from)
	}
	q := fmt.Sprintf(`SELECT bucket, symbol, timeframe, open, high, low, close, volume, trades
        FROM %s FINAL
        WHERE %s
        ORDER BY bucket ASC`, s.barsTable(), strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 512)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Bucket, &b.Symbol, &b.Timeframe, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.TradeCount); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse get_bars ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseTickStore) Symbols(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s ORDER BY symbol", s.ticksTable())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // pool managed by pkg/clickhouse
}
