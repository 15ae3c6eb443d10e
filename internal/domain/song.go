package domain

import "strings"

// Song is one entry of the lyrics.com best matches list
type Song struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	ImageURL   string `json:"image_url,omitempty"`
	AlbumTitle string `json:"album_title"`
	ArtistName string `json:"artist_name"`
}

// Label is the display name used when listing matches. Songs opened by URL
// have no artist, the title alone is used then.
func (s Song) Label() string {
	if strings.TrimSpace(s.ArtistName) == "" {
		return s.Title
	}
	return s.Title + " by " + s.ArtistName
}
