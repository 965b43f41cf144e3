// Package secure provides protected in-memory storage for the client
// secret between the vault read and the token exchange request. Data is
// held in a memguard enclave: encrypted at rest in process memory and
// mlocked against swapping where the platform allows it.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds one sensitive value in an encrypted enclave.
type Buffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewBuffer copies data into a protected region. The caller keeps
// ownership of data and should zero it after the call. memguard returns
// a nil enclave for empty input, so an empty buffer starts out in the
// destroyed state and Open yields an empty plaintext buffer.
func NewBuffer(data []byte) *Buffer {
	if len(data) == 0 {
		return &Buffer{destroyed: true}
	}
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString copies a string secret into a protected region.
func NewBufferFromString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// Open decrypts the enclave and returns a locked plaintext buffer.
// The caller must Destroy the returned buffer as soon as the plaintext
// has been used.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// Destroy marks the buffer unusable. Idempotent; after Destroy, Open
// returns an empty buffer. The encrypted enclave contents are left to the
// garbage collector, with memguard.Purge available at process exit for a
// full sweep.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
