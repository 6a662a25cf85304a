//go:build !opus

package audio

import "fmt"

func decodeOggOpus(_ []byte) (*Waveform, error) {
	return nil, fmt.Errorf("%w: built without opus support", ErrUnsupportedFormat)
}
