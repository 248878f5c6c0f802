package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator hands out the IDs of recorded events.
type IDGenerator interface {
	Generate() string
}

var (
	idGeneratorMu   sync.Mutex
	idGeneratorUsed bool
	idGenerator     IDGenerator = new(CountingIDGenerator)
)

// UseXIDs makes GetIDGenerator return globally unique IDs, so that the
// events of several runs can be stored in one database. It must be called
// before the first ID is generated.
func UseXIDs() {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()

	if idGeneratorUsed {
		log.Panic("the ID generator is already in use")
	}

	idGenerator = XIDGenerator{}
}

// GetIDGenerator returns the process-wide ID generator. IDs count up from 1
// unless UseXIDs was called.
func GetIDGenerator() IDGenerator {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()

	idGeneratorUsed = true

	return idGenerator
}

// CountingIDGenerator generates "1", "2", "3", and so on. It is safe for
// concurrent use.
type CountingIDGenerator struct {
	last atomic.Uint64
}

// Generate returns the next number.
func (g *CountingIDGenerator) Generate() string {
	return strconv.FormatUint(g.last.Add(1), 10)
}

// XIDGenerator generates globally unique, roughly time-ordered IDs.
type XIDGenerator struct{}

// Generate returns a new xid.
func (XIDGenerator) Generate() string {
	return xid.New().String()
}
