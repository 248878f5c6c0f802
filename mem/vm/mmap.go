package vm

// An MmapEntry maps a file onto an inclusive range of virtual pages. The last
// page of the range may be partially backed by the file.
type MmapEntry struct {
	BeginPage      VPN
	EndPage        VPN
	LastPageLength uint64
	File           BackingStore
}

// Contains checks if the page falls into the mapped range.
func (e *MmapEntry) Contains(vpn VPN) bool {
	return vpn >= e.BeginPage && vpn <= e.EndPage
}

// NumPages returns the number of pages in the mapped range.
func (e *MmapEntry) NumPages() uint64 {
	return uint64(e.EndPage-e.BeginPage) + 1
}

// FileOffset returns the offset in the file where the page starts.
func (e *MmapEntry) FileOffset(vpn VPN, pageSize uint64) int64 {
	return int64(uint64(vpn-e.BeginPage) * pageSize)
}

// BytesInPage returns how many bytes of the page are backed by the file.
func (e *MmapEntry) BytesInPage(vpn VPN, pageSize uint64) uint64 {
	if vpn == e.EndPage {
		return e.LastPageLength
	}

	return pageSize
}

// MmapRegistry keeps the memory-mapped ranges of one address space in the
// order they were created. Ranges are expected not to overlap; the registry
// does not check it.
type MmapRegistry struct {
	entries []*MmapEntry
}

// NewMmapRegistry creates an empty registry.
func NewMmapRegistry() *MmapRegistry {
	return &MmapRegistry{}
}

// Add appends a mapping.
func (r *MmapRegistry) Add(entry *MmapEntry) {
	if entry.EndPage < entry.BeginPage {
		panic("mmap entry ends before it begins")
	}

	r.entries = append(r.entries, entry)
}

// Remove deletes the mapping that begins at the given page. It returns the
// removed entry, or nil if no mapping begins there.
func (r *MmapRegistry) Remove(beginPage VPN) *MmapEntry {
	for i, e := range r.entries {
		if e.BeginPage == beginPage {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return e
		}
	}

	return nil
}

// Find returns the first mapping whose range contains the page.
func (r *MmapRegistry) Find(vpn VPN) (*MmapEntry, bool) {
	for _, e := range r.entries {
		if e.Contains(vpn) {
			return e, true
		}
	}

	return nil, false
}

// Entries returns the mappings in creation order.
func (r *MmapRegistry) Entries() []*MmapEntry {
	return r.entries
}

// NextFreePage returns the first page after both the given floor and every
// existing mapping.
func (r *MmapRegistry) NextFreePage(floor VPN) VPN {
	next := floor
	for _, e := range r.entries {
		if e.EndPage+1 > next {
			next = e.EndPage + 1
		}
	}

	return next
}
