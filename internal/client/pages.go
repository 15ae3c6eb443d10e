package client

import (
	"fmt"
	"net/url"
	"strings"

	"rpa/runner/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// ParseImageSources returns the src of every img inside html, resolved against pageURL,
// in document order. Images without a src are skipped.
func ParseImageSources(html, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	var sources []string
	doc.Find("img").Each(func(i int, img *goquery.Selection) {
		src, exists := img.Attr("src")
		src = strings.TrimSpace(src)
		if !exists || src == "" {
			return
		}
		sources = append(sources, resolve(base, src))
	})

	return sources, nil
}

// ParseSongList extracts the best matches of a lyrics.com search result page
func ParseSongList(html, pageURL string) ([]domain.Song, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	var songs []domain.Song
	doc.Find(".best-matches .bm-case").Each(func(i int, s *goquery.Selection) {
		links := s.Find(".bm-label a")
		titleLink := links.First()
		href, exists := titleLink.Attr("href")
		if !exists {
			log.Debugf("Skipping match %d without a link", i)
			return
		}

		song := domain.Song{
			Title:      strings.TrimSpace(titleLink.Text()),
			URL:        resolve(base, href),
			AlbumTitle: "No album",
			ArtistName: strings.TrimSpace(links.Last().Text()),
		}

		if src, ok := s.Find(".album-thumb img").First().Attr("src"); ok {
			song.ImageURL = resolve(base, src)
		}

		albums := s.Find(".bm-label b a")
		if albums.Length() > 1 {
			song.AlbumTitle = strings.TrimSpace(albums.Eq(1).Text())
		}

		songs = append(songs, song)
	})

	return songs, nil
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
