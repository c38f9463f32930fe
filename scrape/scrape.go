package scrape

import (
	"errors"
	"fmt"
	"os"
	"time"

	"financebladi/internal/cache"
	m "financebladi/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("scrape: value not found")

type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code error: %d %s", e.Code, e.URL)
}

// 수집 대상 주소. 테스트에서는 httptest 서버로 교체
type Endpoints struct {
	ForexCSV     string
	TreasuryPage string
	Masi         string
	Phosphate    string
	Yahoo        string
	Investing    string
	AlphaVantage string
	CoinGecko    string
	ExchangeRate string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		ForexCSV:     "https://www.bkam.ma/export/blockcsv/4550/5312b6def4ad0a94c5a992522868ac0a/cc51b5ce6878a3dc655dae26c47fddf8?block=cc51b5ce6878a3dc655dae26c47fddf8",
		TreasuryPage: "https://www.bkam.ma/Marches/Principaux-indicateurs/Marche-obligataire/Marche-des-bons-de-tresor/Marche-secondaire/Taux-de-reference-des-bons-du-tresor",
		Masi:         "https://www.investing.com/indices/masi",
		Phosphate:    "https://tradingeconomics.com/commodity/di-ammonium",
		Yahoo:        "https://query1.finance.yahoo.com",
		Investing:    "https://www.investing.com",
		AlphaVantage: "https://www.alphavantage.co",
		CoinGecko:    "https://api.coingecko.com",
		ExchangeRate: "https://api.exchangerate-api.com",
	}
}

type cryptoBarGetter interface {
	GetLatestCryptoBar(symbol string, req marketdata.GetLatestCryptoBarRequest) (*marketdata.CryptoBar, error)
}

type Scraper struct {
	client   *resty.Client
	urls     Endpoints
	retries  map[m.Source]int
	delay    time.Duration
	cache    cache.Cache
	cacheTTL time.Duration
	headless bool
	avKey    string
	crypto   cryptoBarGetter
	workers  int
	lg       zerolog.Logger
}

type Option func(*Scraper) error

// Functional Option Pattern
func NewScraper(options ...Option) (*Scraper, error) {
	s := &Scraper{
		client:  newClient(30 * time.Second),
		urls:    DefaultEndpoints(),
		retries: make(map[m.Source]int),
		delay:   2 * time.Second,
		avKey:   "demo",
		crypto:  marketdata.NewClient(marketdata.ClientOpts{}),
		workers: 4,
		lg:      zerolog.New(os.Stdout).With().Str("Module", "Scraper").Timestamp().Logger(),
	}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to create Scraper %w", err)
		}
	}
	return s, nil
}

func WithEndpoints(e Endpoints) Option {
	return func(s *Scraper) error {
		s.urls = e
		return nil
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) error {
		if d <= 0 {
			return errors.New("timeout 은 0보다 커야 함")
		}
		s.client.SetTimeout(d)
		return nil
	}
}

// 모듈별 시도 횟수
func WithRetries(src m.Source, n int) Option {
	return func(s *Scraper) error {
		if n < 1 {
			return fmt.Errorf("%s retries 는 1 이상이어야 함", src)
		}
		s.retries[src] = n
		return nil
	}
}

func WithDelay(d time.Duration) Option {
	return func(s *Scraper) error {
		s.delay = d
		return nil
	}
}

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Scraper) error {
		s.cache = c
		s.cacheTTL = ttl
		return nil
	}
}

// Cloudflare 에 막힐 때 headless chrome 으로 재시도
func WithHeadless(enabled bool) Option {
	return func(s *Scraper) error {
		s.headless = enabled
		return nil
	}
}

func WithAlphaVantageKey(key string) Option {
	return func(s *Scraper) error {
		if key != "" {
			s.avKey = key
		}
		return nil
	}
}

func WithWorkers(n int) Option {
	return func(s *Scraper) error {
		if n < 1 {
			return errors.New("workers 는 1 이상이어야 함")
		}
		s.workers = n
		return nil
	}
}

func withCrypto(c cryptoBarGetter) Option {
	return func(s *Scraper) error {
		s.crypto = c
		return nil
	}
}

func (s *Scraper) attempts(src m.Source) int {
	if n, ok := s.retries[src]; ok {
		return n
	}
	return 3
}
