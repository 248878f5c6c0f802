package tlb

// fifoPointer points at the slot that has been filled the longest time ago.
type fifoPointer struct {
	next     int
	capacity int
}

func (p *fifoPointer) advancePast(slot int) {
	p.next = (slot + 1) % p.capacity
}

func (p *fifoPointer) reset() {
	p.next = 0
}
