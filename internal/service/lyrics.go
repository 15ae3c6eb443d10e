package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"rpa/runner/internal/browser"
	"rpa/runner/internal/client"
	"rpa/runner/internal/config"
	"rpa/runner/internal/domain"

	log "github.com/sirupsen/logrus"
)

// lyrics.com page elements
const (
	selLoginLink    = "#user-login"
	selUsername     = "#fld-uname.fw"
	selPassword     = "#fld-upass.fw"
	selLoginSubmit  = "button[type=submit].lrg"
	selLoginError   = "p.err"
	selSearchInput  = "input#search"
	selSearchButton = "button#page-word-search-button"
	selBestMatches  = ".best-matches"
	selSongTitle    = "h1#lyric-title-text"
	selLyricsBody   = "#lyric-body-text"
)

var (
	ErrNoSongs        = errors.New("no songs found")
	ErrNoLyrics       = errors.New("song has no lyrics")
	ErrLoginFailed    = errors.New("login failed")
	ErrLoginCancelled = errors.New("login cancelled: no credentials configured")
)

// LyricsResult describes the saved translation
type LyricsResult struct {
	Song       domain.Song
	Lyrics     string
	Translated bool
	Path       string
}

// LyricsService finds a song on lyrics.com, translates its lyrics and saves them
type LyricsService struct {
	page       browser.Page
	translator client.Translator
	cfg        config.LyricsConfig
}

func NewLyricsService(cfg config.LyricsConfig, page browser.Page, translator client.Translator) *LyricsService {
	return &LyricsService{
		page:       page,
		translator: translator,
		cfg:        cfg,
	}
}

// Run looks up query, which is either a song URL or search words, and writes the
// translated lyrics to the output directory. With login set it signs in first
// when the login link is offered.
func (s *LyricsService) Run(ctx context.Context, query string, login bool) (*LyricsResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty song query")
	}

	if err := s.page.Navigate(ctx, s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.cfg.BaseURL, err)
	}

	if login {
		offered, err := s.page.IsVisible(ctx, selLoginLink)
		if err != nil {
			return nil, err
		}
		if offered {
			if err := s.Login(ctx); err != nil {
				return nil, err
			}
		} else {
			log.Infof("👤 Already signed in")
		}
	}

	var (
		song domain.Song
		err  error
	)
	if isURL(query) {
		song, err = s.openSong(ctx, query)
	} else {
		song, err = s.search(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("🎵 Found %s", song.Label())

	if err := s.page.WaitVisible(ctx, selLyricsBody, s.cfg.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrNoLyrics, song.Label())
	}
	lyrics, err := s.page.Text(ctx, selLyricsBody)
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics: %w", err)
	}
	lyrics = strings.TrimSpace(lyrics)
	if lyrics == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLyrics, song.Label())
	}

	result := &LyricsResult{Song: song, Lyrics: lyrics}
	translated, err := s.translator.Translate(ctx, lyrics, "auto", s.cfg.TargetLanguage)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("⚠️ Translation to %s failed, saving original lyrics: %v", s.cfg.TargetLanguage, err)
	} else {
		result.Lyrics = translated
		result.Translated = true
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.cfg.OutputDir, err)
	}
	result.Path = filepath.Join(s.cfg.OutputDir, safeName(song.Title)+".txt")
	if err := os.WriteFile(result.Path, []byte(result.Lyrics), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", result.Path, err)
	}

	log.Infof("💾 Lyrics of %s saved to %s", song.Label(), result.Path)
	return result, nil
}

// Login signs in with the configured credentials, trying up to LoginRetries times
func (s *LyricsService) Login(ctx context.Context) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return ErrLoginCancelled
	}

	for attempt := 1; attempt <= s.cfg.LoginRetries; attempt++ {
		if err := s.submitLogin(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("⚠️ Login attempt %d/%d failed: %v", attempt, s.cfg.LoginRetries, err)
			continue
		}

		rejected, err := s.page.IsVisible(ctx, selLoginError)
		if err != nil {
			return err
		}
		if !rejected {
			log.Infof("👤 Signed in as %s", s.cfg.Username)
			return nil
		}
		log.Warnf("⚠️ Login attempt %d/%d rejected", attempt, s.cfg.LoginRetries)
	}

	return fmt.Errorf("%w after %d attempts", ErrLoginFailed, s.cfg.LoginRetries)
}

func (s *LyricsService) submitLogin(ctx context.Context) error {
	if err := s.page.Click(ctx, selLoginLink); err != nil {
		return err
	}
	if err := sleep(ctx, s.cfg.StepPause); err != nil {
		return err
	}
	if err := s.page.InputText(ctx, selUsername, s.cfg.Username); err != nil {
		return err
	}
	if err := s.page.InputText(ctx, selPassword, s.cfg.Password); err != nil {
		return err
	}
	if err := s.page.Click(ctx, selLoginSubmit); err != nil {
		return err
	}
	return sleep(ctx, s.cfg.StepPause)
}

// search submits words to the site search and opens the best match
func (s *LyricsService) search(ctx context.Context, words string) (domain.Song, error) {
	if err := s.page.InputText(ctx, selSearchInput, words); err != nil {
		return domain.Song{}, fmt.Errorf("failed to type search: %w", err)
	}
	if err := s.page.Click(ctx, selSearchButton); err != nil {
		return domain.Song{}, fmt.Errorf("failed to search: %w", err)
	}

	if err := s.page.WaitVisible(ctx, selBestMatches, s.cfg.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return domain.Song{}, ctx.Err()
		}
		return domain.Song{}, fmt.Errorf("%w for %q", ErrNoSongs, words)
	}

	html, err := s.page.OuterHTML(ctx, selBestMatches)
	if err != nil {
		return domain.Song{}, fmt.Errorf("failed to read search results: %w", err)
	}
	location, err := s.page.Location(ctx)
	if err != nil {
		return domain.Song{}, err
	}

	songs, err := client.ParseSongList(html, location)
	if err != nil {
		return domain.Song{}, err
	}
	if len(songs) == 0 {
		return domain.Song{}, fmt.Errorf("%w for %q", ErrNoSongs, words)
	}
	log.Debugf("Search for %q returned %d songs", words, len(songs))

	song := songs[0]
	if err := s.page.Navigate(ctx, song.URL); err != nil {
		return domain.Song{}, fmt.Errorf("failed to open %s: %w", song.URL, err)
	}
	return song, nil
}

// openSong opens a song page directly and reads its title
func (s *LyricsService) openSong(ctx context.Context, songURL string) (domain.Song, error) {
	if err := s.page.Navigate(ctx, songURL); err != nil {
		return domain.Song{}, fmt.Errorf("failed to open %s: %w", songURL, err)
	}

	song := domain.Song{URL: songURL}
	if err := s.page.WaitVisible(ctx, selSongTitle, s.cfg.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return domain.Song{}, ctx.Err()
		}
		return domain.Song{}, fmt.Errorf("%w at %s", ErrNoSongs, songURL)
	}

	title, err := s.page.Text(ctx, selSongTitle)
	if err != nil {
		return domain.Song{}, fmt.Errorf("failed to read song title: %w", err)
	}
	song.Title = strings.TrimSpace(title)
	return song, nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
