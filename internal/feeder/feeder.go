package feeder

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"secnews/internal/config"
	"secnews/internal/normalize"
)

const userAgent = "SecNewsBot/1.0"

// RawArticle is one feed entry after extraction and normalization, before
// classification and persistence. Text fields are already cleaned and cut
// to their storage limits.
type RawArticle struct {
	Title       string
	URL         string
	Description string
	Content     string
	ImageURL    string
	Published   time.Time
	Extra       map[string]any
}

// Fetcher retrieves and parses one feed document at a time.
type Fetcher struct {
	parser       *gofeed.Parser
	timeout      time.Duration
	scrapeImages bool
}

func NewFetcher(cfg *config.Config) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{
		Timeout: cfg.FetchTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
		},
	}

	return &Fetcher{
		parser:       parser,
		timeout:      cfg.FetchTimeout,
		scrapeImages: cfg.ScrapePageImages,
	}
}

// FetchArticles retrieves one feed and extracts its entries. A failure to
// fetch or parse the whole document is returned to the caller; entries that
// cannot be used (no title or no link) are dropped.
func (f *Fetcher) FetchArticles(ctx context.Context, feedURL string) ([]RawArticle, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feeder: parse %s: %w", feedURL, err)
	}

	articles := make([]RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		ra, ok := f.extractArticle(item)
		if !ok {
			continue
		}
		articles = append(articles, ra)
	}

	log.Printf("feeder: %s yielded %d/%d usable entries", feedURL, len(articles), len(feed.Items))
	return articles, nil
}

func (f *Fetcher) extractArticle(item *gofeed.Item) (RawArticle, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		// Without a title there is nothing to display, without a link
		// nothing to deduplicate on.
		return RawArticle{}, false
	}

	ra := RawArticle{
		Title:       normalize.Truncate(normalize.Clean(title), normalize.TitleLimit),
		URL:         link,
		Description: normalize.Truncate(normalize.Clean(item.Description), normalize.DescriptionLimit),
		Content:     normalize.Truncate(normalize.Clean(item.Content), normalize.ContentLimit),
		Published:   publishedTime(item),
		ImageURL:    imageURL(item),
	}

	if ra.ImageURL == "" && f.scrapeImages {
		ra.ImageURL = f.scrapePageImage(link)
	}

	extra := map[string]any{}
	if item.GUID != "" {
		extra["guid"] = item.GUID
	}
	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		extra["author"] = item.Authors[0].Name
	}
	if len(extra) > 0 {
		ra.Extra = extra
	}

	return ra, true
}

// publishedTime prefers the published timestamp, then updated; entries with
// neither get the current time so they still sort sensibly.
func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Now().UTC()
}

// imageURL resolves a best-effort image for the entry, in priority order:
// media:content tagged image/*, media:thumbnail, enclosure tagged image/*,
// then the first <img> inside the content body.
func imageURL(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if strings.Contains(content.Attrs["type"], "image") && content.Attrs["url"] != "" {
				return content.Attrs["url"]
			}
		}
		for _, thumb := range media["thumbnail"] {
			if thumb.Attrs["url"] != "" {
				return thumb.Attrs["url"]
			}
		}
	}

	for _, enc := range item.Enclosures {
		if strings.Contains(enc.Type, "image") && enc.URL != "" {
			return enc.URL
		}
	}

	return firstImgSrc(item.Content)
}

func firstImgSrc(content string) string {
	if content == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}
