package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/services/alerts"
	"PairFlow/internal/usecase"
	xlogger "PairFlow/pkg/logger"
)

type memStore struct {
	mu    sync.Mutex
	ticks map[string][]models.Tick
	bars  map[string][]models.Bar
}

func newMemStore() *memStore {
	return &memStore{ticks: make(map[string][]models.Tick), bars: make(map[string][]models.Bar)}
}

func (m *memStore) key(symbol string, tf domrepo.Timeframe) string { return symbol + "|" + string(tf) }

func (m *memStore) Init(ctx context.Context) error { return nil }

func (m *memStore) StoreTick(ctx context.Context, t *models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[t.Symbol] = append(m.ticks[t.Symbol], *t)
	return nil
}

func (m *memStore) StoreTickBatch(ctx context.Context, ticks []*models.Tick) error {
	for _, t := range ticks {
		if err := m.StoreTick(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) GetTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Tick(nil), m.ticks[symbol]...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) StoreBars(ctx context.Context, symbol string, tf domrepo.Timeframe, bars []models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[m.key(symbol, tf)] = append(m.bars[m.key(symbol, tf)], bars...)
	return nil
}

func (m *memStore) GetBars(ctx context.Context, symbol string, tf domrepo.Timeframe, from time.Time) ([]models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Bar(nil), m.bars[m.key(symbol, tf)]...), nil
}

func (m *memStore) Symbols(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for sym := range m.ticks {
		out = append(out, sym)
	}
	return out, nil
}

func (m *memStore) Health(ctx context.Context) error { return nil }
func (m *memStore) Close() error                     { return nil }

var _ domrepo.TickStore = (*memStore)(nil)

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(backend, symbol string)             {}
func (nopMetrics) RecordError(kind string)                              {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)         {}
func (nopMetrics) RecordLatency(op string, seconds float64)             {}
func (nopMetrics) RecordBarsAggregated(symbol, timeframe string, n int) {}

func newTestServer(t *testing.T, store domrepo.TickStore) (*echo.Echo, *alerts.Manager) {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	am := alerts.NewManager(l)
	pa := usecase.NewPairAnalyticsUseCase(store, am, nopMetrics{}, l)
	bt := usecase.NewBacktestUseCase(pa, l)
	tr := usecase.NewTransferUseCase(store, l)
	h := NewMarketHandler(l, store, pa, bt, tr, am)

	e := echo.New()
	h.RegisterRoutes(e)
	return e, am
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.Contains(rec.Header().Get(echo.HeaderContentType), "json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestTicksEndpoint(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tk := models.Tick{Symbol: "BTCUSDT", Timestamp: base.Add(time.Duration(i) * time.Second), Price: 100 + float64(i), Size: 1}
		_ = store.StoreTick(context.Background(), &tk)
	}
	e, _ := newTestServer(t, store)

	rec, env := doRequest(t, e, http.MethodGet, "/api/ticks?symbol=BTCUSDT", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Rows  []models.Tick `json:"rows"`
		Total int64         `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if list.Total != 3 || len(list.Rows) != 3 {
		t.Fatalf("got %d/%d rows, want 3", list.Total, len(list.Rows))
	}
}

func TestTicksEndpointRequiresSymbol(t *testing.T) {
	e, _ := newTestServer(t, newMemStore())
	rec, env := doRequest(t, e, http.MethodGet, "/api/ticks", "")
	// envelope carries the real status; transport stays 200
	if rec.Code != http.StatusOK || env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d/%d, want 200/400", rec.Code, env.Status)
	}
}

func TestAlertRuleCRUD(t *testing.T) {
	e, am := newTestServer(t, newMemStore())

	body := `{"kind":"zscore","symbol1":"BTCUSDT","symbol2":"ETHUSDT","threshold":2.5,"direction":"above","severity":"warning"}`
	rec, env := doRequest(t, e, http.MethodPost, "/api/alerts/rules", body)
	if rec.Code != http.StatusOK || env.Status != http.StatusCreated {
		t.Fatalf("add rule status = %d/%d, body %s", rec.Code, env.Status, rec.Body.String())
	}
	var created ruleView
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	if created.Kind != "zscore" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}
	if len(am.Rules()) != 1 {
		t.Fatalf("manager has %d rules, want 1", len(am.Rules()))
	}

	_, listEnv := doRequest(t, e, http.MethodGet, "/api/alerts/rules", "")
	var list struct {
		Rows []ruleView `json:"rows"`
	}
	if err := json.Unmarshal(listEnv.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Rows) != 1 || list.Rows[0].ID != created.ID {
		t.Fatalf("list = %+v", list.Rows)
	}

	rec, _ = doRequest(t, e, http.MethodDelete, "/api/alerts/rules/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(am.Rules()) != 0 {
		t.Fatalf("rule not removed")
	}
}

func TestAddRuleRejectsUnknownKind(t *testing.T) {
	e, _ := newTestServer(t, newMemStore())
	body := `{"kind":"sentiment","symbol1":"BTCUSDT","threshold":1}`
	rec, env := doRequest(t, e, http.MethodPost, "/api/alerts/rules", body)
	if rec.Code != http.StatusOK || env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d/%d, want envelope 400", rec.Code, env.Status)
	}
}

func TestUploadBarsAndFetch(t *testing.T) {
	store := newMemStore()
	e, _ := newTestServer(t, store)

	csv := "ts,open,high,low,close,volume\n2024-10-10T10:00:00Z,100,105,99,102,12.5\n"
	req := httptest.NewRequest(http.MethodPost, "/api/bars/upload?symbol=BTCUSDT&tf=1m", strings.NewReader(csv))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	bars, err := store.GetBars(context.Background(), "BTCUSDT", domrepo.TF1m, time.Time{})
	if err != nil || len(bars) != 1 {
		t.Fatalf("bars = %v err %v, want 1", bars, err)
	}

	_, env := doRequest(t, e, http.MethodGet, "/api/bars?symbol=BTCUSDT&tf=1m", "")
	var list struct {
		Rows []models.Bar `json:"rows"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode bars: %v", err)
	}
	if len(list.Rows) != 1 || list.Rows[0].Close != 102 {
		t.Fatalf("rows = %+v", list.Rows)
	}
}

func TestExportTicksCSV(t *testing.T) {
	store := newMemStore()
	tk := models.Tick{Symbol: "ETHUSDT", Timestamp: time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC), Price: 200, Size: 1}
	_ = store.StoreTick(context.Background(), &tk)
	e, _ := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/ticks/export?symbol=ETHUSDT", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.Contains(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || lines[0] != "timestamp,price,size" {
		t.Fatalf("csv = %q", rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestServer(t, newMemStore())
	rec, env := doRequest(t, e, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || env.Status != http.StatusOK {
		t.Fatalf("status = %d/%d", rec.Code, env.Status)
	}
}
