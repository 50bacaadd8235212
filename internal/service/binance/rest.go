package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	xhttp "PairFlow/pkg/http"
)

const defaultRestURL = "https://api.binance.com"

// RestClient pulls historical klines over the Binance REST API. It is used
// once at startup to seed bars before the live stream has accumulated any.
type RestClient struct {
	baseURL string
	cli     *xhttp.Client
}

func NewRestClient(baseURL string) *RestClient {
	if baseURL == "" {
		baseURL = defaultRestURL
	}
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
	}
}

// Klines fetches up to limit recent klines and converts them to bars.
// Binance kline rows are JSON arrays mixing numbers and numeric strings.
func (r *RestClient) Klines(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Bar, error) {
	if limit <= 0 {
		limit = 500
	}
	if limit > 1000 {
		limit = 1000
	}

	var raw [][]interface{}
	err := r.cli.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    r.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {strings.ToUpper(symbol)},
			"interval": {string(tf)},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s/%s: %w", symbol, tf, err)
	}

	bars := make([]models.Bar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTime, ok := asFloat(k[0])
		if !ok {
			continue
		}
		o, ok1 := asFloat(k[1])
		h, ok2 := asFloat(k[2])
		l, ok3 := asFloat(k[3])
		cl, ok4 := asFloat(k[4])
		v, ok5 := asFloat(k[5])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		bars = append(bars, models.Bar{
			Symbol:    strings.ToUpper(symbol),
			Timeframe: string(tf),
			Bucket:    time.UnixMilli(int64(openTime)).UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     cl,
			Volume:    v,
		})
	}
	return bars, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
