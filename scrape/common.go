package scrape

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	m "financebladi/internal/model"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var browserHeaders = map[string]string{
	"User-Agent":                userAgent,
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Accept-Encoding":           "gzip, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

func newClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeaders(browserHeaders).
		OnAfterResponse(decompress)
}

/*
중요!
Accept-Encoding 을 직접 지정하면 net/http 가 압축을 풀어주지 않음.
resty 는 gzip 만 풀어주기 때문에 br 은 여기서 처리하고, gzip 은 아직 압축된 경우에만 푼다.
*/
func decompress(_ *resty.Client, resp *resty.Response) error {
	body := resp.Body()
	if len(body) == 0 {
		return nil
	}

	var reader io.Reader
	switch resp.Header().Get("Content-Encoding") {
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return nil
		}
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	default:
		return nil
	}

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("error decompressing response\n%w", err)
	}
	resp.SetBody(decompressed)
	return nil
}

// GET 후 403 이면 같은 주소로 POST. 모듈별 횟수만큼 재시도하고 성공한 본문은 캐시
func (s *Scraper) fetch(ctx context.Context, src m.Source, url string) ([]byte, error) {

	key := "scrape:" + url
	if s.cache != nil {
		if body, ok := s.cache.Get(ctx, key); ok {
			s.lg.Debug().Str("url", url).Msg("cache hit")
			return body, nil
		}
	}

	n := s.attempts(src)
	var lastErr error
	for attempt := 1; attempt <= n; attempt++ {
		s.lg.Info().Msgf("Fetching %s (attempt %d/%d)", url, attempt, n)

		body, err := s.fetchOnce(ctx, url)
		if err == nil {
			if s.cache != nil && s.cacheTTL > 0 {
				s.cache.Set(ctx, key, body, s.cacheTTL)
			}
			return body, nil
		}
		lastErr = err
		s.lg.Warn().Err(err).Str("source", src.String()).Msg("request failed")

		if attempt < n {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", url, n, lastErr)
}

func (s *Scraper) fetchOnce(ctx context.Context, url string) ([]byte, error) {

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusForbidden {
		s.lg.Warn().Str("url", url).Msg("GET 403 Forbidden. switching to POST")
		resp, err = s.client.R().SetContext(ctx).Post(url)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// JSON API 용. resty 의 자동 파싱은 압축 해제보다 먼저 실행되므로 직접 디코딩
func (s *Scraper) getJSON(ctx context.Context, src m.Source, url string, response any) error {

	body, err := s.fetch(ctx, src, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("error decoding %s\n%w", url, err)
	}
	return nil
}
