package audio

import (
	"errors"

	"github.com/smallnest/ringbuffer"
)

var (
	ErrShortFrame    = errors.New("frame data too short")
	ErrFrameTooLarge = errors.New("audio frame too large for buffer")
)

// FrameRing buffers audio frames with oldest-first eviction on overflow.
type FrameRing interface {
	Enqueue(f Frame) error
	Dequeue() (Frame, bool)
	Drain() []Frame
	Len() int
	Capacity() int
	Reset()
}

type ring struct {
	size int
	rb   *ringbuffer.RingBuffer
}

// NewRing creates a FrameRing holding up to size bytes of encoded frames.
func NewRing(size int) FrameRing {
	return &ring{
		size: size,
		rb:   ringbuffer.New(size).SetBlocking(false),
	}
}

// Capacity implements FrameRing.
func (r *ring) Capacity() int {
	return r.size
}

// Len implements FrameRing.
func (r *ring) Len() int {
	return r.rb.Length()
}

// Reset implements FrameRing.
func (r *ring) Reset() {
	r.rb.Reset()
}

// Enqueue implements FrameRing. Frames are stored with a 4-byte little
// endian size prefix; old frames are evicted to make room.
func (r *ring) Enqueue(f Frame) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	required := len(data) + 4
	if required > r.rb.Capacity() {
		return ErrFrameTooLarge
	}

	for r.rb.Free() < required {
		if !r.skipFrame() {
			r.rb.Reset()
			break
		}
	}

	sizeBytes := make([]byte, 4)
	sizeBytes[0] = byte(len(data))
	sizeBytes[1] = byte(len(data) >> 8)
	sizeBytes[2] = byte(len(data) >> 16)
	sizeBytes[3] = byte(len(data) >> 24)

	if _, err := r.rb.Write(sizeBytes); err != nil {
		return err
	}
	_, err = r.rb.Write(data)
	return err
}

// Dequeue implements FrameRing.
func (r *ring) Dequeue() (Frame, bool) {
	if r.rb.IsEmpty() {
		return Frame{}, false
	}

	sizeBytes := make([]byte, 4)
	n, err := r.rb.Read(sizeBytes)
	if err != nil || n != 4 {
		return Frame{}, false
	}
	size := int(sizeBytes[0]) | int(sizeBytes[1])<<8 | int(sizeBytes[2])<<16 | int(sizeBytes[3])<<24

	data := make([]byte, size)
	n, err = r.rb.Read(data)
	if err != nil || n != size {
		return Frame{}, false
	}

	var f Frame
	if err := f.UnmarshalBinary(data); err != nil {
		return Frame{}, false
	}
	return f, true
}

// Drain implements FrameRing, consuming every buffered frame in order.
func (r *ring) Drain() []Frame {
	var frames []Frame
	for {
		f, ok := r.Dequeue()
		if !ok {
			return frames
		}
		frames = append(frames, f)
	}
}

// skipFrame discards the oldest frame without decoding it.
func (r *ring) skipFrame() bool {
	if r.rb.IsEmpty() {
		return false
	}

	sizeBytes := make([]byte, 4)
	n, err := r.rb.Read(sizeBytes)
	if err != nil || n != 4 {
		return false
	}
	size := int(sizeBytes[0]) | int(sizeBytes[1])<<8 | int(sizeBytes[2])<<16 | int(sizeBytes[3])<<24

	if size > 0 {
		skip := make([]byte, size)
		n, err := r.rb.Read(skip)
		if err != nil || n != size {
			return false
		}
	}
	return true
}

// PCMBytes concatenates the raw PCM of a frame sequence.
func PCMBytes(frames []Frame) []byte {
	total := 0
	for i := range frames {
		total += len(frames[i].Data)
	}
	out := make([]byte, 0, total)
	for i := range frames {
		out = append(out, frames[i].Data...)
	}
	return out
}
