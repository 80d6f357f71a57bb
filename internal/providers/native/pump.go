package native

import (
	"errors"
	"fmt"
	"io"
	"os"

	"darling/internal/ports"
)

var errStreamGone = errors.New("transcription stream closed")

// pumpAudio copies captured audio into the stream until the capture ends.
func pumpAudio(audio io.Reader, stream ports.StreamingSession, chunkSize int) error {
	if chunkSize < 256 {
		chunkSize = 4096
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				return fmt.Errorf("%w: %v", errStreamGone, sendErr)
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			return nil
		}
		return fmt.Errorf("read audio: %w", err)
	}
}
