package scrape

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"

	m "financebladi/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/sync/errgroup"
)

type Ticker struct {
	Symbol      string
	Yahoo       string
	Description string
	Investing   string // investing.com slug. 없으면 대체 조회 안 함
}

var Tickers = []Ticker{
	{"BRENT", "BZ=F", "Brent Crude Oil", "brent-crude"},
	{"WTI", "CL=F", "WTI Crude Oil", "crude-oil"},
	{"GAS", "NG=F", "Natural Gas", ""},
	{"GOLD", "GC=F", "Gold", "gold"},
	{"SILVER", "SI=F", "Silver", "silver"},
	{"COPPER", "HG=F", "Copper", "copper"},
	{"SP500", "^GSPC", "S&P 500", "us-spx-500"},
	{"DJIA", "^DJI", "Dow Jones", "us-30"},
	{"NASDAQ", "^IXIC", "NASDAQ", "nasdaq-composite"},
	{"RUSSELL2000", "^RUT", "Russell 2000", ""},
	{"CAC40", "^FCHI", "CAC 40", ""},
	{"DAX", "^GDAXI", "DAX", ""},
	{"FTSE100", "^FTSE", "FTSE 100", ""},
	{"US10Y", "^TNX", "US 10Y Treasury Yield", "us-10y-bond-yield"},
	{"VIX", "^VIX", "VIX Volatility Index", "vix"},
	{"BITCOIN", "BTC-USD", "Bitcoin", "bitcoin-usd"},
	{"EURUSD", "EURUSD=X", "EUR/USD", "eur-usd"},
	{"USDJPY", "JPY=X", "USD/JPY", "usd-jpy"},
	{"GBPUSD", "GBPUSD=X", "GBP/USD", "gbp-usd"},
	{"USDCAD", "CAD=X", "USD/CAD", "usd-cad"},
	{"AUDUSD", "AUDUSD=X", "AUD/USD", "aud-usd"},
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// 마지막 유효 종가, 없으면 regularMarketPrice
func (r chartResponse) price() (float64, bool) {
	if len(r.Chart.Result) == 0 {
		return 0, false
	}
	res := r.Chart.Result[0]
	if len(res.Indicators.Quote) > 0 {
		closes := res.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil {
				return *closes[i], true
			}
		}
	}
	if res.Meta.RegularMarketPrice != 0 {
		return res.Meta.RegularMarketPrice, true
	}
	return 0, false
}

// 해외 시세. 종목별 실패는 결과에서 빠질 뿐 오류가 아니다. 절반 이상 실패하면 대체 API 조회
func (s *Scraper) MarketQuotes(ctx context.Context) (*m.MarketQuotes, error) {
	s.lg.Info().Msg("Starting MarketQuotes")

	quotes := &m.MarketQuotes{
		Values:  make(map[string]float64, len(Tickers)),
		Sources: make(map[string]string, len(Tickers)),
		Total:   len(Tickers),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, t := range Tickers {
		g.Go(func() error {
			v, source, err := s.quote(gctx, t)
			if err != nil {
				s.lg.Warn().Err(err).Str("symbol", t.Symbol).Msg("quote failed")
				return nil
			}

			mu.Lock()
			quotes.Values[t.Symbol] = v
			quotes.Sources[t.Symbol] = source
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quotes.Succeeded = len(quotes.Values)
	s.lg.Info().Msgf("%d/%d quotes retrieved", quotes.Succeeded, quotes.Total)

	if quotes.Succeeded*2 < quotes.Total {
		s.lg.Warn().Msg("many quotes failed. trying alternative sources")
		s.alternativeQuotes(ctx, quotes)
		quotes.Succeeded = len(quotes.Values)
	}

	if quotes.Succeeded == 0 {
		return nil, fmt.Errorf("%w: no market quote", ErrNotFound)
	}
	return quotes, nil
}

func (s *Scraper) quote(ctx context.Context, t Ticker) (float64, string, error) {

	v, err := s.yahooPrice(ctx, t.Yahoo)
	if err == nil {
		return v, "yahoo", nil
	}
	if t.Investing == "" {
		return 0, "", err
	}

	s.lg.Debug().Err(err).Str("symbol", t.Symbol).Msg("yahoo failed. trying investing.com")
	text, ierr := s.staticPrice(ctx, m.YahooMarkets, s.urls.Investing+"/indices/"+t.Investing)
	if ierr != nil {
		return 0, "", fmt.Errorf("yahoo: %v, investing: %w", err, ierr)
	}
	v, err = parsePrice(text)
	if err != nil {
		return 0, "", err
	}
	return v, "investing", nil
}

func (s *Scraper) yahooPrice(ctx context.Context, ticker string) (float64, error) {

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", s.urls.Yahoo, url.PathEscape(ticker))

	var resp chartResponse
	if err := s.getJSON(ctx, m.YahooMarkets, endpoint, &resp); err != nil {
		return 0, err
	}
	if resp.Chart.Error != nil {
		return 0, fmt.Errorf("yahoo %s: %s", ticker, resp.Chart.Error.Description)
	}

	v, ok := resp.price()
	if !ok {
		return 0, fmt.Errorf("%w: yahoo close for %s", ErrNotFound, ticker)
	}
	return v, nil
}

// strconv.ParseFloat 은 "NaN", "Inf" 도 받는다
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// 비어 있는 항목만 채운다
func (s *Scraper) alternativeQuotes(ctx context.Context, quotes *m.MarketQuotes) {

	set := func(symbol, source string, v float64) {
		if _, ok := quotes.Values[symbol]; ok || v == 0 || !finite(v) {
			return
		}
		quotes.Values[symbol] = v
		quotes.Sources[symbol] = source
	}

	var av struct {
		GlobalQuote struct {
			Price string `json:"05. price"`
		} `json:"Global Quote"`
	}
	if err := s.getJSON(ctx, m.YahooMarkets, s.urls.AlphaVantage+"/query?function=GLOBAL_QUOTE&symbol=SPY&apikey="+url.QueryEscape(s.avKey), &av); err == nil {
		if v, err := strconv.ParseFloat(av.GlobalQuote.Price, 64); err == nil {
			set("SP500", "alphavantage:SPY", v)
		}
	} else {
		s.lg.Warn().Err(err).Msg("alphavantage failed")
	}

	var cg struct {
		Bitcoin struct {
			USD float64 `json:"usd"`
		} `json:"bitcoin"`
	}
	if err := s.getJSON(ctx, m.YahooMarkets, s.urls.CoinGecko+"/api/v3/simple/price?ids=bitcoin&vs_currencies=usd", &cg); err == nil {
		set("BITCOIN", "coingecko", cg.Bitcoin.USD)
	} else {
		s.lg.Warn().Err(err).Msg("coingecko failed")
	}

	var ex struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := s.getJSON(ctx, m.YahooMarkets, s.urls.ExchangeRate+"/v4/latest/USD", &ex); err == nil {
		if eur := ex.Rates["EUR"]; eur != 0 {
			set("EURUSD", "exchangerate-api", 1/eur)
		}
		set("USDJPY", "exchangerate-api", ex.Rates["JPY"])
	} else {
		s.lg.Warn().Err(err).Msg("exchangerate-api failed")
	}

	if _, ok := quotes.Values["BITCOIN"]; !ok && s.crypto != nil {
		bar, err := s.crypto.GetLatestCryptoBar("BTC/USD", marketdata.GetLatestCryptoBarRequest{})
		if err == nil && bar != nil {
			set("BITCOIN", "alpaca", bar.Close)
		} else {
			s.lg.Warn().Err(err).Msg("alpaca failed")
		}
	}
}
