// Package swap provides backing stores for the pages of a process.
package swap

import (
	"io"
	"sync"
)

// MemStore is a BackingStore kept in host memory. It is allocated in units of
// unitSize bytes as they are touched, and bytes never written read as zero.
type MemStore struct {
	sync.Mutex

	unitSize int64
	capacity int64
	units    map[int64][]byte
}

// NewMemStore creates a store of capacity bytes allocated in units of
// unitSize bytes. Accesses beyond the capacity are cut short.
func NewMemStore(capacity, unitSize int64) *MemStore {
	if unitSize <= 0 {
		panic("unit size must be positive")
	}

	return &MemStore{
		unitSize: unitSize,
		capacity: capacity,
		units:    make(map[int64][]byte),
	}
}

// Capacity returns the number of bytes the store can hold.
func (s *MemStore) Capacity() int64 {
	return s.capacity
}

// NumUnitsAllocated returns how many units have been touched by a write.
func (s *MemStore) NumUnitsAllocated() int {
	s.Lock()
	defer s.Unlock()

	return len(s.units)
}

// ReadAt reads len(p) bytes starting at off.
func (s *MemStore) ReadAt(p []byte, off int64) (int, error) {
	s.Lock()
	defer s.Unlock()

	n, err := s.clip(len(p), off)

	for done := 0; done < n; {
		base, inUnit, length := s.locate(off+int64(done), n-done)
		data := p[done : done+length]

		if unit, ok := s.units[base]; ok {
			copy(data, unit[inUnit:])
		} else {
			clear(data)
		}

		done += length
	}

	return n, err
}

// WriteAt writes len(p) bytes starting at off.
func (s *MemStore) WriteAt(p []byte, off int64) (int, error) {
	s.Lock()
	defer s.Unlock()

	n, err := s.clip(len(p), off)
	if err == io.EOF {
		err = io.ErrShortWrite
	}

	for done := 0; done < n; {
		base, inUnit, length := s.locate(off+int64(done), n-done)

		unit, ok := s.units[base]
		if !ok {
			unit = make([]byte, s.unitSize)
			s.units[base] = unit
		}

		copy(unit[inUnit:], p[done:done+length])
		done += length
	}

	return n, err
}

func (s *MemStore) clip(length int, off int64) (int, error) {
	if off < 0 || off >= s.capacity {
		return 0, io.EOF
	}

	if int64(length) > s.capacity-off {
		return int(s.capacity - off), io.EOF
	}

	return length, nil
}

// locate splits an address into the base of its unit and the offset inside
// the unit, and returns how many of the remaining bytes fit in the unit.
func (s *MemStore) locate(addr int64, remaining int) (base, inUnit int64, length int) {
	inUnit = addr % s.unitSize
	base = addr - inUnit

	length = int(s.unitSize - inUnit)
	if length > remaining {
		length = remaining
	}

	return base, inUnit, length
}
