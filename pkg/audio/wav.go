package audio

import "encoding/binary"

// EncodeWAV wraps raw 16-bit mono PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate int32) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	const (
		numChannels   = 1
		bitsPerSample = 16
	)

	byteRate := int(sampleRate) * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	wavSize := 44 + len(pcm)

	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(wavSize-8))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM format chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	out := make([]byte, 0, wavSize)
	out = append(out, header...)
	out = append(out, pcm...)
	return out
}
