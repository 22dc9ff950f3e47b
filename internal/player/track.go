package player

// Track is one playlist entry. Src and Cover are locators resolved by the
// media layer: relative asset paths, absolute URLs or object keys.
type Track struct {
	Title  string `json:"title" toml:"title"`
	Artist string `json:"artist" toml:"artist"`
	Src    string `json:"src" toml:"src"`
	Cover  string `json:"cover" toml:"cover"`
}

// DefaultPlaylist returns the release's one-track playlist.
func DefaultPlaylist() []Track {
	return []Track{
		{
			Title:  "Pray",
			Artist: "ThaMyind",
			Src:    "assets/audio/pray.mp3",
			Cover:  "assets/videos/pray.mp4",
		},
	}
}
