package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

func document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating document\n%w", err)
	}
	return doc, nil
}

func firstText(doc *goquery.Document, cssPath string) string {
	return strings.TrimSpace(doc.Find(cssPath).First().Text())
}

func selectAllMatched(doc *goquery.Document, cssPath string) []string {

	matched := make([]string, 0)
	doc.Find(cssPath).Each(func(i int, s *goquery.Selection) {
		matched = append(matched, strings.TrimSpace(s.Text()))
	})

	return matched
}

func crawlSpaBodyAvoidingCloudflare(ctx context.Context, url string) (*goquery.Document, error) {

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)

	ctx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx)
	defer cancel()

	var htmlContent string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(3134*time.Millisecond), // Wait for Cloudflare to complete
		chromedp.ActionFunc(func(ctx context.Context) error {
			var title string
			if err := chromedp.Title(&title).Do(ctx); err != nil {
				return err
			}
			if strings.Contains(title, "Cloudflare") || strings.Contains(title, "Just a moment") {
				return chromedp.Sleep(10 * time.Second).Do(ctx)
			}
			return nil
		}),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return nil, fmt.Errorf("headless crawl %s. check chrome browser exists\n%w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("error creating document\n%w", err)
	}
	return doc, nil
}
