package feeder

import (
	"log"
	"time"

	"github.com/gocolly/colly/v2"
)

// scrapePageImage visits the article page and pulls the og:image meta tag.
// Best effort: any failure yields an empty string. Only called when the
// feed entry itself exposed no image and page scraping is enabled.
func (f *Fetcher) scrapePageImage(pageURL string) string {
	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(10 * time.Second)

	var img string
	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		if img == "" {
			img = e.Attr("content")
		}
	})

	if err := c.Visit(pageURL); err != nil {
		log.Printf("feeder: og:image scrape %s: %v", pageURL, err)
		return ""
	}
	return img
}
