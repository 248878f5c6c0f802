// Package vm defines the data model shared by the virtual memory components:
// process and page identities, address spaces, memory-mapped file ranges,
// the backing-store gateway, and the error taxonomy.
package vm

// PID stands for Process ID.
type PID uint32

// VPN is a virtual page number, a virtual address divided by the page size.
type VPN uint64

// A BackingStore holds page contents that are not resident in physical
// memory. Both swap files and memory-mapped files are BackingStores. An
// *os.File satisfies the interface.
//
// The virtual memory core treats a short read or write as a fatal
// inconsistency; it never retries.
type BackingStore interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
}

// An AddressSpace is the virtual memory of a process. It is created and torn
// down by the process management code; the virtual memory core only reads it.
type AddressSpace interface {
	// NumPages returns the number of pages backed by the swap store.
	NumPages() uint64

	// SwapStore returns the per-process swap store.
	SwapStore() BackingStore

	// Mappings returns the memory-mapped file ranges of the process.
	Mappings() *MmapRegistry
}

// ExecContext is what the virtual memory core needs to know about the
// process that is currently running.
type ExecContext interface {
	// PID returns the ID of the current process.
	PID() PID

	// Space returns the address space of the current process.
	Space() AddressSpace

	// FaultAddress returns the virtual address that caused the latest
	// translation fault, as latched in the bad-address register.
	FaultAddress() uint64
}

// Space is the default AddressSpace implementation.
type Space struct {
	numPages uint64
	swap     BackingStore
	mappings *MmapRegistry
}

// NewSpace creates an address space of numPages pages swapped to swap.
func NewSpace(numPages uint64, swap BackingStore) *Space {
	return &Space{
		numPages: numPages,
		swap:     swap,
		mappings: NewMmapRegistry(),
	}
}

// NumPages returns the number of pages backed by the swap store.
func (s *Space) NumPages() uint64 {
	return s.numPages
}

// SwapStore returns the per-process swap store.
func (s *Space) SwapStore() BackingStore {
	return s.swap
}

// Mappings returns the memory-mapped file ranges of the process.
func (s *Space) Mappings() *MmapRegistry {
	return s.mappings
}
