package page

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Page IDs are ULIDs: 48 bits of millisecond time followed by 80 bits of
// randomness, in Crockford base32. IDs minted in the same millisecond carry
// an increasing counter in their first random bytes so they still sort.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	idMu    sync.Mutex
	idLast  uint64
	idCount uint16
)

// NewID returns a 26-character sortable identifier.
func NewID() string {
	idMu.Lock()
	ms := uint64(time.Now().UnixMilli())
	if ms == idLast {
		idCount++
	} else {
		idLast = ms
		idCount = 0
	}
	count := idCount
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ms<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], count)
	return encodeBase32(b)
}

// encodeBase32 writes 128 bits as 26 characters, most significant first.
// The leading character carries only the top 3 bits.
func encodeBase32(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
