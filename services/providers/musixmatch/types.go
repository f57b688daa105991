package musixmatch

import "encoding/json"

// envelope is the outer shape of every Musixmatch API response.
// Body is kept raw because the API sends [] instead of {} on errors.
type envelope struct {
	Message struct {
		Header header          `json:"header"`
		Body   json.RawMessage `json:"body"`
	} `json:"message"`
}

type header struct {
	StatusCode  int     `json:"status_code"`
	ExecuteTime float64 `json:"execute_time"`
	Hint        string  `json:"hint,omitempty"`
}

// richsyncBody is the body of /richsync responses.
// RichsyncBody is itself a JSON-encoded string.
type richsyncBody struct {
	Richsync struct {
		RichsyncID     int64  `json:"richsync_id"`
		RichsyncBody   string `json:"richsync_body"`
		RichsyncLength int    `json:"richsync_length"`
	} `json:"richsync"`
}

// searchBody is the body of /search responses
type searchBody struct {
	TrackList []struct {
		Track Track `json:"track"`
	} `json:"track_list"`
}

// Track is a search hit
type Track struct {
	TrackID    int64  `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
	HasLyrics  int    `json:"has_lyrics"`
	HasSynced  int    `json:"has_richsync"`
}

// lyricsBody is the body of /lyrics responses
type lyricsBody struct {
	Lyrics struct {
		LyricsID   int64  `json:"lyrics_id"`
		LyricsBody string `json:"lyrics_body"`
		Explicit   int    `json:"explicit"`
	} `json:"lyrics"`
}
