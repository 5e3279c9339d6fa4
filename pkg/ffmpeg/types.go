package ffmpeg

// AudioMetadata represents metadata extracted from an audio payload
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	Bitrate    int     `json:"bitrate"`     // Bitrate in bits per second
	Format     string  `json:"format"`      // Container format (mp3, mov,mp4,m4a, etc.)
	Codec      string  `json:"codec"`       // Audio codec
}
