package commands

import (
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	lyricsSong  string
	lyricsLogin bool
)

func init() {
	lyricsCmd.Flags().StringVar(&lyricsSong, "song", "", "Song name to search for, or a lyrics.com song URL.")
	lyricsCmd.Flags().BoolVar(&lyricsLogin, "login", false, "Sign in with the configured credentials first.")
	rootCmd.AddCommand(lyricsCmd)
}

var lyricsCmd = &cobra.Command{
	Use:   "lyrics --song <name or url> [--login]",
	Short: "Finds a song on lyrics.com and saves its translated lyrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(lyricsSong) == "" {
			return errors.New("--song is required")
		}

		app, err := newContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.RunLyrics(cmd.Context(), lyricsSong, lyricsLogin)
		if err != nil {
			return err
		}

		log.Infof("✅ %s saved to %s (translated: %t)", result.Song.Label(), result.Path, result.Translated)
		return nil
	},
}
