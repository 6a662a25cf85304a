package audio

const (
	opusOutputRate = 48000
	oggHeaderSize  = 27
)

// opusHeadChannels reads the output channel count from the OpusHead packet on
// the first Ogg page. It returns 0 when the stream is not Ogg/Opus.
func opusHeadChannels(data []byte) int {
	if len(data) < oggHeaderSize || string(data[0:4]) != "OggS" {
		return 0
	}
	segments := int(data[26])
	payload := oggHeaderSize + segments
	if len(data) < payload+10 {
		return 0
	}
	if string(data[payload:payload+8]) != "OpusHead" {
		return 0
	}
	return int(data[payload+9])
}
