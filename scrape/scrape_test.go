package scrape

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"financebladi/internal/cache"
	m "financebladi/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forexCSV = "\xEF\xBB\xBF" + `"Cours de référence";;
"Devise;Moyen"
"1 EURO;10,8234"
"1 DOLLAR U.S.A.;9,9871"
"1 LIVRE STERLING;12,5012"
`

const treasuryCSV = "\xEF\xBB\xBF" + `Taux de référence des bons du Trésor;;;
Date d'échéance;Transaction;Taux moyen pondéré;Date de la valeur
"15/01/2026";"1 200";"2,500 %";"10/01/2024"
"15/01/2029";"300";"2,750 %";"10/01/2024"
Total;;;
"bad";"1";"x";"y"
"15/01/2034";"50";"3,100 %";"10/01/2024"
`

const treasuryPage = `<html><body>
<a href="/other">other</a>
<a class="btn" href="/export/blockcsv/2340/abc?block=def">CSV</a>
<a href="/export/blockcsv/9999/zzz">second</a>
</body></html>`

const masiPage = `<html><body><div data-test="instrument-price-last"> 13,245.67 </div></body></html>`

const masiAltPage = `<html><body><span class="text-2xl">Maroc</span><span class="text-2xl">13,001.10</span></body></html>`

const phosphatePage = `<table><tr><td>Actual</td><td>Previous</td></tr><tr><td>625.00</td>
<td>610.50</td></tr></table>`

type cryptoMock struct {
	close float64
	err   error
	calls int
}

func (c *cryptoMock) GetLatestCryptoBar(symbol string, _ marketdata.GetLatestCryptoBarRequest) (*marketdata.CryptoBar, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &marketdata.CryptoBar{Close: c.close}, nil
}

func endpointsFor(base string) Endpoints {
	return Endpoints{
		ForexCSV:     base + "/forex.csv",
		TreasuryPage: base + "/treasury/page",
		Masi:         base + "/masi",
		Phosphate:    base + "/phosphate",
		Yahoo:        base,
		Investing:    base,
		AlphaVantage: base,
		CoinGecko:    base,
		ExchangeRate: base,
	}
}

func newTestScraper(t *testing.T, srv *httptest.Server, opts ...Option) *Scraper {
	t.Helper()
	base := []Option{
		WithEndpoints(endpointsFor(srv.URL)),
		WithDelay(0),
		WithTimeout(5 * time.Second),
		withCrypto(&cryptoMock{err: errors.New("unused")}),
	}
	s, err := NewScraper(append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func chartJSON(closes ...string) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"X","regularMarketPrice":1.5},"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`, strings.Join(closes, ","))
}

func TestForexRates(t *testing.T) {

	t.Run("정상", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, forexCSV)
		}))
		defer srv.Close()

		rates, err := newTestScraper(t, srv).ForexRates(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 10.8234, rates.EURMAD)
		assert.Equal(t, 9.9871, rates.USDMAD)
		assert.False(t, rates.Fallback)
	})

	t.Run("일부 누락", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "header\n1 EURO;10,80\n")
		}))
		defer srv.Close()

		rates, err := newTestScraper(t, srv).ForexRates(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
		require.NotNil(t, rates)
		assert.Equal(t, 10.80, rates.EURMAD)
		assert.Zero(t, rates.USDMAD)
	})

	t.Run("HTTP 오류", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestScraper(t, srv, WithRetries(m.BkamForex, 2)).ForexRates(context.Background())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Code)
		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestTreasuryObservations(t *testing.T) {

	mux := http.NewServeMux()
	mux.HandleFunc("/treasury/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, treasuryPage)
	})
	mux.HandleFunc("/export/blockcsv/2340/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "def", r.URL.Query().Get("block"))
		fmt.Fprint(w, treasuryCSV)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	obs, err := newTestScraper(t, srv).TreasuryObservations(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 4)
	assert.Equal(t, "15/01/2026", obs[0].DateText)
	assert.Equal(t, "2,500 %", obs[0].RateText)
	assert.Equal(t, "bad", obs[2].DateText)
	assert.Equal(t, "3,100 %", obs[3].RateText)

	t.Run("링크 없음", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>maintenance</body></html>")
		}))
		defer srv.Close()

		_, err := newTestScraper(t, srv).TreasuryObservations(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestParseTreasuryCSV(t *testing.T) {
	assert.Empty(t, parseTreasuryCSV([]byte("a\nb")))
	assert.Empty(t, parseTreasuryCSV([]byte("a\nb\n01/01/2030;x;2 %\n")))

	obs := parseTreasuryCSV([]byte("\n\na\nb\r\n01/01/2030;x;2,1 %;y\r\n"))
	require.Len(t, obs, 1)
	assert.Equal(t, "2,1 %", obs[0].RateText)
}

func TestMasi(t *testing.T) {

	t.Run("기본 선택자", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, masiPage)
		}))
		defer srv.Close()

		q, err := newTestScraper(t, srv).Masi(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "13,245.67", q.Value)
		assert.Equal(t, "Investing.com", q.Source)
	})

	t.Run("대체 선택자", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, masiAltPage)
		}))
		defer srv.Close()

		q, err := newTestScraper(t, srv).Masi(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "13,001.10", q.Value)
	})

	t.Run("가격 없음", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html></html>")
		}))
		defer srv.Close()

		_, err := newTestScraper(t, srv).Masi(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPhosphateDAP(t *testing.T) {

	t.Run("표", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, phosphatePage)
		}))
		defer srv.Close()

		q, err := newTestScraper(t, srv).PhosphateDAP(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 625.0, q.Value)
	})

	t.Run("스크립트 내 가격", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<script>var x = {"price":"598.25"};</script>`)
		}))
		defer srv.Close()

		q, err := newTestScraper(t, srv).PhosphateDAP(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 598.25, q.Value)
	})

	t.Run("없음", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<td>n/a</td>")
		}))
		defer srv.Close()

		_, err := newTestScraper(t, srv).PhosphateDAP(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarketQuotes(t *testing.T) {

	t.Run("야후 + investing 대체", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
			ticker := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
			switch ticker {
			case "^VIX", "^RUT":
				w.WriteHeader(http.StatusNotFound)
			case "^TNX":
				fmt.Fprint(w, chartJSON("null", "null"))
			default:
				fmt.Fprint(w, chartJSON("100.5", "101.25", "null"))
			}
		})
		mux.HandleFunc("/indices/vix", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<div data-test="instrument-price-last">1,015.25</div>`)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		q, err := newTestScraper(t, srv, WithRetries(m.YahooMarkets, 1)).MarketQuotes(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 21, q.Total)
		assert.Equal(t, 20, q.Succeeded)
		assert.Equal(t, 101.25, q.Values["BRENT"])
		assert.Equal(t, "yahoo", q.Sources["BRENT"])
		assert.Equal(t, 1.5, q.Values["US10Y"], "meta price when no close")
		assert.Equal(t, 1015.25, q.Values["VIX"])
		assert.Equal(t, "investing", q.Sources["VIX"])
		_, ok := q.Values["RUSSELL2000"]
		assert.False(t, ok)
	})

	t.Run("대체 API", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "SPY", r.URL.Query().Get("symbol"))
			fmt.Fprint(w, `{"Global Quote":{"05. price":"512.30"}}`)
		})
		mux.HandleFunc("/api/v3/simple/price", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		mux.HandleFunc("/v4/latest/USD", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"rates":{"EUR":0.8,"JPY":150.5}}`)
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		crypto := &cryptoMock{close: 67000.5}
		s := newTestScraper(t, srv, WithRetries(m.YahooMarkets, 1), withCrypto(crypto))

		q, err := s.MarketQuotes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, q.Succeeded)
		assert.Equal(t, 512.30, q.Values["SP500"])
		assert.Equal(t, 1.25, q.Values["EURUSD"])
		assert.Equal(t, 150.5, q.Values["USDJPY"])
		assert.Equal(t, 67000.5, q.Values["BITCOIN"])
		assert.Equal(t, "alpaca", q.Sources["BITCOIN"])
		assert.Equal(t, 1, crypto.calls)
	})

	t.Run("대체 API 의 NaN, Inf 가격 제외", func(t *testing.T) {
		for _, price := range []string{"NaN", "Inf", "-Infinity"} {
			mux := http.NewServeMux()
			mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"Global Quote":{"05. price":%q}}`, price)
			})
			mux.HandleFunc("/v4/latest/USD", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"rates":{"EUR":0.8,"JPY":150.5}}`)
			})
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			})
			srv := httptest.NewServer(mux)

			q, err := newTestScraper(t, srv, WithRetries(m.YahooMarkets, 1)).MarketQuotes(context.Background())
			srv.Close()
			require.NoError(t, err, price)

			_, ok := q.Values["SP500"]
			assert.False(t, ok, price)
			_, ok = q.Sources["SP500"]
			assert.False(t, ok, price)
			assert.Equal(t, 2, q.Succeeded, price)

			_, err = json.Marshal(q)
			assert.NoError(t, err, price)
		}
	})

	t.Run("전부 실패", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestScraper(t, srv, WithRetries(m.YahooMarkets, 1)).MarketQuotes(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFetch(t *testing.T) {

	t.Run("403 이면 POST", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			fmt.Fprint(w, "posted")
		}))
		defer srv.Close()

		body, err := newTestScraper(t, srv).fetch(context.Background(), m.BkamForex, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "posted", string(body))
	})

	t.Run("재시도", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		body, err := newTestScraper(t, srv, WithRetries(m.TradingEconomics, 3)).fetch(context.Background(), m.TradingEconomics, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("브라우저 헤더", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
			assert.Equal(t, "gzip, br", r.Header.Get("Accept-Encoding"))
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		_, err := newTestScraper(t, srv).fetch(context.Background(), m.BkamForex, srv.URL)
		require.NoError(t, err)
	})

	t.Run("brotli 해제", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			bw.Write([]byte("compressed page"))
			bw.Close()

			w.Header().Set("Content-Encoding", "br")
			w.Write(buf.Bytes())
		}))
		defer srv.Close()

		body, err := newTestScraper(t, srv).fetch(context.Background(), m.BkamForex, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "compressed page", string(body))
	})

	t.Run("gzip 해제", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			gw := gzip.NewWriter(&buf)
			gw.Write([]byte("gzipped page"))
			gw.Close()

			w.Header().Set("Content-Encoding", "gzip")
			w.Write(buf.Bytes())
		}))
		defer srv.Close()

		body, err := newTestScraper(t, srv).fetch(context.Background(), m.BkamForex, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "gzipped page", string(body))
	})

	t.Run("캐시", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "cached")
		}))
		defer srv.Close()

		c := cache.NewMemory(time.Minute, time.Minute)
		s := newTestScraper(t, srv, WithCache(c, time.Minute))

		for i := 0; i < 3; i++ {
			body, err := s.fetch(context.Background(), m.BkamForex, srv.URL)
			require.NoError(t, err)
			assert.Equal(t, "cached", string(body))
		}
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("취소", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestScraper(t, srv, WithDelay(time.Hour)).fetch(ctx, m.BkamForex, srv.URL)
		assert.Error(t, err)
	})
}

func TestOptions(t *testing.T) {
	_, err := NewScraper(WithRetries(m.BkamForex, 0))
	assert.Error(t, err)

	_, err = NewScraper(WithTimeout(0))
	assert.Error(t, err)

	_, err = NewScraper(WithWorkers(0))
	assert.Error(t, err)

	s, err := NewScraper(WithRetries(m.BkamForex, 5), WithAlphaVantageKey(""))
	require.NoError(t, err)
	assert.Equal(t, 5, s.attempts(m.BkamForex))
	assert.Equal(t, 3, s.attempts(m.YahooMarkets))
	assert.Equal(t, "demo", s.avKey)
}

func TestParsePrice(t *testing.T) {
	v, err := parsePrice("1,234.50 $")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v)

	_, err = parsePrice("N/A")
	assert.Error(t, err)

	_, err = parsePrice("1e400")
	assert.Error(t, err)
}
