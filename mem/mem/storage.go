package mem

import (
	"errors"
	"log"
)

// ErrAccessBeyondCapacity is returned when an access falls outside the
// physical memory.
var ErrAccessBeyondCapacity = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the data of the main memory of the guest system.
//
// The storage is divided into frames of equal size. Frames are addressed by
// their frame number, bytes by their physical address. Unlike a sparse
// storage, all the frames are allocated upfront, as the number of frames of a
// simulated machine is small and fixed.
type Storage struct {
	frameSize uint64
	numFrames int
	data      []byte
}

// NewStorage creates a storage object with numFrames frames of frameSize
// bytes each.
func NewStorage(numFrames int, frameSize uint64) *Storage {
	if numFrames <= 0 {
		log.Panicf("number of frames must be positive, got %d", numFrames)
	}

	if frameSize == 0 {
		panic("frame size must not be zero")
	}

	return &Storage{
		frameSize: frameSize,
		numFrames: numFrames,
		data:      make([]byte, uint64(numFrames)*frameSize),
	}
}

// FrameSize returns the number of bytes in a frame.
func (s *Storage) FrameSize() uint64 {
	return s.frameSize
}

// NumFrames returns the number of frames.
func (s *Storage) NumFrames() int {
	return s.numFrames
}

// Capacity returns the number of bytes the storage holds.
func (s *Storage) Capacity() uint64 {
	return uint64(len(s.data))
}

// Frame returns the bytes of a frame. The returned slice aliases the storage,
// so that the backing store can read into and write from memory directly.
func (s *Storage) Frame(frame int) []byte {
	if frame < 0 || frame >= s.numFrames {
		log.Panicf("frame %d out of range [0, %d)", frame, s.numFrames)
	}

	start := uint64(frame) * s.frameSize

	return s.data[start : start+s.frameSize : start+s.frameSize]
}

// Read returns a copy of length bytes starting at the physical address.
func (s *Storage) Read(address, length uint64) ([]byte, error) {
	if !s.inRange(address, length) {
		return nil, ErrAccessBeyondCapacity
	}

	res := make([]byte, length)
	copy(res, s.data[address:address+length])

	return res, nil
}

// Write copies data into the storage starting at the physical address.
func (s *Storage) Write(address uint64, data []byte) error {
	if !s.inRange(address, uint64(len(data))) {
		return ErrAccessBeyondCapacity
	}

	copy(s.data[address:], data)

	return nil
}

func (s *Storage) inRange(address, length uint64) bool {
	capacity := s.Capacity()
	return address <= capacity && length <= capacity-address
}
