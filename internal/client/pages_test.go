package client

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseImageSources(t *testing.T) {
	html := `<div id="robot-preview-image">
		<img src="/heads/1.png" alt="Head">
		<img alt="no source">
		<img src="https://cdn.example.com/bodies/2.png" alt="Body">
		<img src="legs/3.png" alt="Legs">
	</div>`

	sources, err := ParseImageSources(html, "https://robotsparebinindustries.com/#/robot-order")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://robotsparebinindustries.com/heads/1.png",
		"https://cdn.example.com/bodies/2.png",
		"https://robotsparebinindustries.com/legs/3.png",
	}, sources)
}

func TestParseSongList(t *testing.T) {
	html := `<div class="best-matches">
		<div class="bm-case">
			<div class="album-thumb"><img src="/images/a.jpg"></div>
			<div class="bm-label">
				<a href="/lyric/1/Yesterday">Yesterday</a>
				<b><a href="/album/x">Help!</a><a href="/album/y">Help! (Remaster)</a></b>
				<a href="/artist/beatles">The Beatles</a>
			</div>
		</div>
		<div class="bm-case">
			<div class="bm-label">
				<a href="https://www.lyrics.com/lyric/2/Hey+Jude">Hey Jude</a>
			</div>
		</div>
	</div>`

	songs, err := ParseSongList(html, "https://www.lyrics.com/serp.php?st=yesterday")
	require.NoError(t, err)
	require.Len(t, songs, 2)

	require.Equal(t, "Yesterday", songs[0].Title)
	require.Equal(t, "https://www.lyrics.com/lyric/1/Yesterday", songs[0].URL)
	require.Equal(t, "https://www.lyrics.com/images/a.jpg", songs[0].ImageURL)
	require.Equal(t, "Help! (Remaster)", songs[0].AlbumTitle)
	require.Equal(t, "The Beatles", songs[0].ArtistName)
	require.Equal(t, "Yesterday by The Beatles", songs[0].Label())

	require.Equal(t, "No album", songs[1].AlbumTitle)
	require.Equal(t, "Hey Jude", songs[1].ArtistName)
	require.Empty(t, songs[1].ImageURL)
}
