package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/market"
)

// FuturesBaseURL is the Binance USDⓈ-M futures REST endpoint.
const FuturesBaseURL = "https://fapi.binance.com"

// Binance is a USDⓈ-M futures REST client. Symbols are canonical
// "BASE/QUOTE" strings; the venue id ("BTCUSDT") is derived internally.
type Binance struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	exchangeID string
	httpClient *http.Client
}

// NewBinance builds a futures client. Credentials are only needed for the
// signed order endpoints; all market-data calls are public.
func NewBinance(apiKey, apiSecret string) *Binance {
	return &Binance{
		baseURL:    FuturesBaseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		exchangeID: "binanceusdm",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// venueSymbol maps "BTC/USDT" to "BTCUSDT".
func venueSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// canonicalSymbol maps "BTCUSDT" back to "BTC/USDT" for USDT-quoted pairs.
func canonicalSymbol(venue string) string {
	if base, ok := strings.CutSuffix(venue, "USDT"); ok && base != "" {
		return base + "/USDT"
	}
	return venue
}

func (b *Binance) get(ctx context.Context, path string, query url.Values, out any) error {
	u := b.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if b.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}

// signedPost sends an HMAC-signed request to a trading endpoint.
func (b *Binance) signedPost(ctx context.Context, path string, params url.Values, out any) error {
	if b.apiKey == "" || b.apiSecret == "" {
		return fmt.Errorf("%s: api credentials required", path)
	}

	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(params.Encode()))
	params.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: decode: %w", path, err)
		}
	}
	return nil
}

// FetchOHLCV returns up to limit klines for the symbol, oldest first, as
// candles stamped with this exchange's id.
func (b *Binance) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	tfMs, err := market.TimeframeMs(timeframe)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", venueSymbol(symbol))
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	// Klines arrive as arrays of mixed numbers and strings.
	var raw [][]json.RawMessage
	if err := b.get(ctx, "/fapi/v1/klines", q, &raw); err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("klines: open time: %w", err)
		}
		vals := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			var s string
			if err := json.Unmarshal(row[i], &s); err != nil {
				return nil, fmt.Errorf("klines: field %d: %w", i, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("klines: field %d: %w", i, err)
			}
			vals[i-1] = v
		}
		candles = append(candles, market.Candle{
			Exchange:    b.exchangeID,
			Symbol:      symbol,
			Timeframe:   timeframe,
			OpenTimeMs:  openTime,
			Open:        vals[0],
			High:        vals[1],
			Low:         vals[2],
			Close:       vals[3],
			Volume:      vals[4],
			CloseTimeMs: openTime + tfMs,
		})
	}
	return candles, nil
}

type bookTicker struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bidPrice"`
	Ask    string `json:"askPrice"`
}

type dayTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

// FetchTickers merges the 24h statistics and book-top endpoints into one
// snapshot keyed by canonical symbol.
func (b *Binance) FetchTickers(ctx context.Context) (map[string]Ticker, error) {
	var days []dayTicker
	if err := b.get(ctx, "/fapi/v1/ticker/24hr", url.Values{}, &days); err != nil {
		return nil, err
	}
	var books []bookTicker
	if err := b.get(ctx, "/fapi/v1/ticker/bookTicker", url.Values{}, &books); err != nil {
		return nil, err
	}

	bookBySymbol := make(map[string]bookTicker, len(books))
	for _, bt := range books {
		bookBySymbol[bt.Symbol] = bt
	}

	out := make(map[string]Ticker, len(days))
	for _, d := range days {
		t := Ticker{
			Symbol:      canonicalSymbol(d.Symbol),
			Last:        parseFloat(d.LastPrice),
			QuoteVolume: parseFloat(d.QuoteVolume),
		}
		if bt, ok := bookBySymbol[d.Symbol]; ok {
			t.Bid = parseFloat(bt.Bid)
			t.Ask = parseFloat(bt.Ask)
		}
		out[t.Symbol] = t
	}
	return out, nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		QuoteAsset   string `json:"quoteAsset"`
		ContractType string `json:"contractType"`
		Status       string `json:"status"`
	} `json:"symbols"`
}

// FetchMarkets lists the venue's contracts with canonical symbols.
func (b *Binance) FetchMarkets(ctx context.Context) ([]Market, error) {
	var info exchangeInfo
	if err := b.get(ctx, "/fapi/v1/exchangeInfo", url.Values{}, &info); err != nil {
		return nil, err
	}

	out := make([]Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		out = append(out, Market{
			Symbol:   canonicalSymbol(s.Symbol),
			Quote:    s.QuoteAsset,
			Contract: true,
			Linear:   s.QuoteAsset == "USDT" || s.QuoteAsset == "USDC",
			Active:   s.Status == "TRADING",
		})
	}
	return out, nil
}

// CreateOrder places a market order (limit when price is non-zero). Only
// the gated real executor may call this.
func (b *Binance) CreateOrder(ctx context.Context, symbol, side string, amount, price float64) (Order, error) {
	params := url.Values{}
	params.Set("symbol", venueSymbol(symbol))
	params.Set("side", strings.ToUpper(side))
	params.Set("quantity", strconv.FormatFloat(amount, 'f', -1, 64))
	if price > 0 {
		params.Set("type", "LIMIT")
		params.Set("timeInForce", "GTC")
		params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	} else {
		params.Set("type", "MARKET")
	}

	var resp struct {
		OrderID int64  `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := b.signedPost(ctx, "/fapi/v1/order", params, &resp); err != nil {
		return Order{}, err
	}

	log.Info().Str("symbol", symbol).Str("side", side).Float64("amount", amount).Msg("order placed")
	return Order{
		ID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Status: resp.Status,
	}, nil
}

// SetLeverage sets the symbol's leverage; failures are logged, not fatal.
func (b *Binance) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", venueSymbol(symbol))
	params.Set("leverage", strconv.Itoa(leverage))

	if err := b.signedPost(ctx, "/fapi/v1/leverage", params, nil); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Int("leverage", leverage).Msg("set leverage failed")
		return err
	}
	return nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
