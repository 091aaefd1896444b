package audio

import (
	"encoding/binary"
	"time"
)

// Frame is one chunk of PCM waveform with its capture metadata.
type Frame struct {
	Data       []byte
	Timestamp  time.Time
	SampleRate int32
	Channels   int16
}

// Duration computes the play time of the frame assuming 16-bit samples.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / 2 / int(f.Channels)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// MarshalBinary encodes the frame as
// timestamp(8) + sampleRate(4) + channels(2) + dataLen(4) + data.
func (f *Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8+4+2+4+len(f.Data))

	offset := 0
	binary.LittleEndian.PutUint64(buf[offset:], uint64(f.Timestamp.UnixNano()))
	offset += 8
	binary.LittleEndian.PutUint32(buf[offset:], uint32(f.SampleRate))
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], uint16(f.Channels))
	offset += 2
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(f.Data)))
	offset += 4
	copy(buf[offset:], f.Data)

	return buf, nil
}

// UnmarshalBinary decodes a frame produced by MarshalBinary.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < 18 {
		return ErrShortFrame
	}

	offset := 0
	f.Timestamp = time.Unix(0, int64(binary.LittleEndian.Uint64(data[offset:])))
	offset += 8
	f.SampleRate = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	f.Channels = int16(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	dataLen := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if len(data[offset:]) < int(dataLen) {
		return ErrShortFrame
	}
	f.Data = make([]byte, dataLen)
	copy(f.Data, data[offset:offset+int(dataLen)])

	return nil
}
