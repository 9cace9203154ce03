package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// wavHeader is the canonical 44-byte PCM WAV header.
type wavHeader struct {
	RiffTag       [4]byte
	RiffSize      uint32
	WaveTag       [4]byte
	FmtTag        [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataTag       [4]byte
	DataSize      uint32
}

// EncodePCM16 wraps raw mono PCM16LE bytes in a WAV container.
func EncodePCM16(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	h := wavHeader{
		RiffSize:      36 + uint32(len(pcm)),
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		DataSize:      uint32(len(pcm)),
	}
	copy(h.RiffTag[:], "RIFF")
	copy(h.WaveTag[:], "WAVE")
	copy(h.FmtTag[:], "fmt ")
	copy(h.DataTag[:], "data")

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	_ = binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodePCM16 extracts mono PCM16LE bytes and the sample rate from a
// WAV container. Non-fmt/data chunks are skipped.
func DecodePCM16(wav []byte) (pcm []byte, sampleRate int, err error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE stream")
	}

	rest := wav[12:]
	for len(rest) >= 8 {
		tag := string(rest[0:4])
		size := int(binary.LittleEndian.Uint32(rest[4:8]))
		body := rest[8:]
		if size > len(body) {
			size = len(body)
		}
		switch tag {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("malformed fmt chunk")
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return nil, 0, fmt.Errorf("unsupported audio format %d", format)
			}
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
		case "data":
			pcm = body[:size]
		}
		// Chunks are word-aligned.
		if size%2 == 1 {
			size++
		}
		if 8+size > len(rest) {
			break
		}
		rest = rest[8+size:]
	}

	if sampleRate == 0 {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("missing data chunk")
	}
	return pcm, sampleRate, nil
}

// TrimLeadingPCM16 drops the first lead of mono PCM16LE audio.
func TrimLeadingPCM16(pcm []byte, sampleRate int, lead time.Duration) []byte {
	if lead <= 0 || sampleRate <= 0 {
		return pcm
	}
	offset := int(float64(sampleRate)*lead.Seconds()) * 2
	if offset >= len(pcm) {
		return nil
	}
	if offset%2 == 1 {
		offset++
	}
	return pcm[offset:]
}

// TrimLeadingWAVFile rewrites a WAV file in place with its first lead
// removed, discarding the prior content.
func TrimLeadingWAVFile(path string, lead time.Duration) error {
	if lead <= 0 {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read wav: %w", err)
	}
	pcm, sampleRate, err := DecodePCM16(raw)
	if err != nil {
		return fmt.Errorf("decode wav %s: %w", path, err)
	}
	trimmed := TrimLeadingPCM16(pcm, sampleRate, lead)
	if err := os.WriteFile(path, EncodePCM16(trimmed, sampleRate), 0o644); err != nil {
		return fmt.Errorf("rewrite wav: %w", err)
	}
	return nil
}
