package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	icache "PairFlow/internal/service/cache"
	svcmetrics "PairFlow/internal/service/metrics"
	"PairFlow/internal/service/ratelimit"
	"PairFlow/internal/services/alerts"
	"PairFlow/internal/usecase"
	xhttp "PairFlow/pkg/http"
	xlogger "PairFlow/pkg/logger"
	"PairFlow/pkg/util"
)

const analyticsCacheTTL = 15 * time.Second

// MarketHandler exposes the market data and analytics API over Echo.
type MarketHandler struct {
	logger   *xlogger.Logger
	store    domrepo.TickStore
	pair     *usecase.PairAnalyticsUseCase
	backtest *usecase.BacktestUseCase
	transfer *usecase.TransferUseCase
	alerts   *alerts.Manager
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
}

func NewMarketHandler(
	logger *xlogger.Logger,
	store domrepo.TickStore,
	pair *usecase.PairAnalyticsUseCase,
	backtest *usecase.BacktestUseCase,
	transfer *usecase.TransferUseCase,
	am *alerts.Manager,
) *MarketHandler {
	svcmetrics.Register()
	return &MarketHandler{
		logger:   logger,
		store:    store,
		pair:     pair,
		backtest: backtest,
		transfer: transfer,
		alerts:   am,
		rl:       ratelimit.New(),
	}
}

// SetCache attaches an optional response cache for the analytics endpoints.
func (h *MarketHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/symbols", h.Symbols)
	g.GET("/ticks", h.Ticks)
	g.GET("/ticks/export", h.ExportTicks)
	g.GET("/bars", h.Bars)
	g.POST("/bars/upload", h.UploadBars)
	g.GET("/pair-analytics", h.PairAnalytics)
	g.POST("/backtest", h.Backtest)
	g.GET("/alerts/rules", h.ListRules)
	g.POST("/alerts/rules", h.AddRule)
	g.DELETE("/alerts/rules/:id", h.RemoveRule)
	g.GET("/alerts/history", h.AlertHistory)
}

func (h *MarketHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("storage: %v", err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *MarketHandler) Symbols(c echo.Context) error {
	symbols, err := h.store.Symbols(c.Request().Context())
	if err != nil {
		h.logger.Error("symbols query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, symbols, int64(len(symbols)))
}

func (h *MarketHandler) Ticks(c echo.Context) error {
	req := &models.TicksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := util.ParseTimeDefault(req.From, time.Time{})
	to := util.ParseTimeDefault(req.To, time.Time{})

	ticks, err := h.store.GetTicks(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("ticks query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, ticks, int64(len(ticks)))
}

func (h *MarketHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)
	from := util.ParseTimeDefault(req.From, time.Time{})

	bars, err := h.store.GetBars(c.Request().Context(), req.Symbol, tf, from)
	if err != nil {
		h.logger.Error("bars query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

func (h *MarketHandler) PairAnalytics(c echo.Context) error {
	start := time.Now()
	endpoint := "pair_analytics"
	defer func() {
		svcmetrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req := &models.PairAnalyticsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	if !h.rl.Allow(c.RealIP()+":pa", 5, 2) {
		h.logger.Warn("pair analytics rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
	}

	cacheKey := fmt.Sprintf("pa:%s:%s:%s:%d:%t:%t", req.Symbol1, req.Symbol2, tf, req.Window, req.UseKalman, req.Robust)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("pair analytics cache get error", xlogger.Error(err))
		} else if ok {
			return xhttp.SuccessResponse(c, json.RawMessage(b))
		}
	}

	res, err := h.pair.Compute(c.Request().Context(), usecase.PairAnalyticsParams{
		Symbol1:   req.Symbol1,
		Symbol2:   req.Symbol2,
		Timeframe: tf,
		Window:    req.Window,
		UseKalman: req.UseKalman,
		Robust:    req.Robust,
	})
	if err != nil {
		svcmetrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("pair analytics error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, analyticsCacheTTL); err != nil {
				h.logger.Warn("pair analytics cache set error", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Backtest(c echo.Context) error {
	start := time.Now()
	endpoint := "backtest"
	defer func() {
		svcmetrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	if !h.rl.Allow(c.RealIP()+":bt", 3, 1) {
		h.logger.Warn("backtest rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
	}

	res, err := h.backtest.Run(c.Request().Context(), usecase.BacktestParams{
		Symbol1:   req.Symbol1,
		Symbol2:   req.Symbol2,
		Timeframe: tf,
		Window:    req.Window,
		Config: usecase.BacktestConfig{
			EntryThreshold: req.EntryThreshold,
			ExitThreshold:  req.ExitThreshold,
			StopLoss:       req.StopLoss,
			TakeProfit:     req.TakeProfit,
		},
	})
	if err != nil {
		svcmetrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("backtest error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ruleView is the wire form of a registered rule.
type ruleView struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Symbols  []string `json:"symbols"`
	Severity string   `json:"severity"`
}

func (h *MarketHandler) ListRules(c echo.Context) error {
	rules := h.alerts.Rules()
	out := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleView{ID: r.ID(), Kind: r.Kind(), Symbols: r.Symbols(), Severity: r.Severity()})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *MarketHandler) AddRule(c echo.Context) error {
	req := &models.AddRuleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rule, err := buildRule(h.alerts.NextID(req.Kind), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.alerts.AddRule(rule)
	h.logger.Info("alert rule added",
		xlogger.String("id", rule.ID()),
		xlogger.String("kind", rule.Kind()),
	)
	return xhttp.CreatedResponse(c, ruleView{
		ID: rule.ID(), Kind: rule.Kind(), Symbols: rule.Symbols(), Severity: rule.Severity(),
	})
}

func buildRule(id string, req *models.AddRuleRequest) (alerts.Rule, error) {
	var symbols []string
	for _, s := range []string{req.Symbol1, req.Symbol2} {
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol required")
	}

	switch req.Kind {
	case "zscore":
		if req.Threshold <= 0 {
			return nil, fmt.Errorf("zscore rule needs a positive threshold")
		}
		return alerts.NewZScoreRule(id, symbols, req.Threshold, req.Direction, req.Severity), nil
	case "price":
		if req.Threshold <= 0 {
			return nil, fmt.Errorf("price rule needs a positive threshold")
		}
		return alerts.NewPriceThresholdRule(id, symbols, req.Threshold, req.Direction, req.Severity), nil
	case "spread":
		return alerts.NewSpreadRule(id, symbols, req.Threshold, req.Direction, req.Severity), nil
	case "correlation":
		if req.Threshold <= -1 || req.Threshold > 1 {
			return nil, fmt.Errorf("correlation floor must be in (-1, 1]")
		}
		return alerts.NewCorrelationRule(id, symbols, req.Threshold, req.Severity), nil
	case "volume_spike":
		if req.Threshold <= 0 {
			return nil, fmt.Errorf("volume_spike rule needs a positive multiplier")
		}
		return alerts.NewVolumeSpikeRule(id, symbols, req.Threshold, req.Severity), nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", req.Kind)
	}
}

func (h *MarketHandler) RemoveRule(c echo.Context) error {
	id := c.Param("id")
	if !h.alerts.RemoveRule(id) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("rule %s not registered", id))
	}
	return xhttp.NoContentResponse(c)
}

func (h *MarketHandler) AlertHistory(c echo.Context) error {
	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	history := h.alerts.History(limit)
	return xhttp.ListResponse(c, history, int64(len(history)))
}

// UploadBars ingests a CSV body (or multipart "file" part) of
// (ts, open, high, low, close, volume) rows for one symbol and timeframe.
func (h *MarketHandler) UploadBars(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol required"))
	}
	tf := domrepo.NormalizeTimeframe(c.QueryParam("tf"))

	body := c.Request().Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("open upload: %v", err))
		}
		defer f.Close()
		body = f
	}

	n, err := h.transfer.ImportBarsCSV(c.Request().Context(), symbol, tf, body)
	if err != nil {
		h.logger.Error("bar upload error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("import: %v", err))
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{
		"symbol": symbol,
		"tf":     string(tf),
		"bars":   n,
	})
}

// ExportTicks streams a symbol's ticks as a CSV attachment.
func (h *MarketHandler) ExportTicks(c echo.Context) error {
	req := &models.TicksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := util.ParseTimeDefault(req.From, time.Time{})
	to := util.ParseTimeDefault(req.To, time.Time{})

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s_ticks.csv", req.Symbol))
	c.Response().WriteHeader(http.StatusOK)

	if _, err := h.transfer.ExportTicksCSV(c.Request().Context(), req.Symbol, from, to, req.Limit, c.Response()); err != nil {
		// headers already sent, just log
		h.logger.Error("tick export error", xlogger.Error(err))
		return nil
	}
	return nil
}
