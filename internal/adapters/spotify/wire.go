package spotify

type spotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
	Album   spotifyAlbum    `json:"album"`
}

type searchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// largestImage picks the widest album image, or "".
func (t spotifyTrack) largestImage() string {
	best := -1
	url := ""
	for _, img := range t.Album.Images {
		if img.URL == "" {
			continue
		}
		if img.Width > best {
			best = img.Width
			url = img.URL
		}
	}
	return url
}
