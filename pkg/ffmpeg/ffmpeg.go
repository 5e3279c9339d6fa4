package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// Prober reads audio metadata with ffprobe. Payloads are piped over stdin,
// nothing is written to disk.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// New creates a new Prober
func New(ffprobePath string, timeout time.Duration) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinary checks that ffprobe is available
func (p *Prober) ValidateBinary() error {
	if _, err := exec.LookPath(p.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, p.ffprobePath)
	}
	return nil
}

// GetMetadata probes an in-memory audio payload
func (p *Prober) GetMetadata(ctx context.Context, data []byte) (*AudioMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0", // Select first audio stream
		"-of", "json",
		"-i", "pipe:0",
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("metadata_extraction", err, stderr.String())
	}

	var output ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, NewProcessingError("metadata_parsing", err, "")
	}

	return parseMetadata(&output)
}

// Duration returns the payload length in seconds
func (p *Prober) Duration(ctx context.Context, data []byte) (float64, error) {
	md, err := p.GetMetadata(ctx, data)
	if err != nil {
		return 0, err
	}
	return md.Duration, nil
}
