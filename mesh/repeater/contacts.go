// Package repeater implements the chat-repeater MeshApp: admin login,
// contact management, group channels, and the serial CLI, grounded
// directly on src/helpers/BaseChatMesh.cpp
// and examples/simple_repeater/main.cpp.
package repeater

import (
	"sort"

	"github.com/NyanHelsing/MeshCore/crypto"
	"github.com/NyanHelsing/MeshCore/internal/instrument"
	"github.com/NyanHelsing/MeshCore/mesh"
)

// DefaultMaxContacts bounds the contact table. The reference
// firmware's simple_repeater example used MAX_CLIENTS=4, sized for its
// demo hardware's RAM; this default is larger since nothing here is
// memory-constrained the same way.
const DefaultMaxContacts = 32

// Contact is one entry in the repeater's contact table: a peer's
// public key, its cached ECDH secret, the path learned back to it, and
// the replay-guard state for messages from it.
type Contact struct {
	PublicKey []byte
	HashID    byte
	Name      string
	Secret    [crypto.SharedSecretSize]byte

	LastTimestamp       uint32
	LastAdvertTimestamp uint32
	LastRSSI            int16

	// IsAdmin is set once a contact has completed the ANON_REQ login
	// flow with the correct admin password. Only admin contacts get
	// CLI command handling; everyone else just gets their TXT_MSG
	// acked.
	IsAdmin bool

	OutPath    [mesh.MaxPathSize]byte
	OutPathLen int
	valid      bool
}

// Contacts is a fixed-capacity table of Contact, looked up by hash_id
// prefix: hash_id is one byte, so collisions across contacts are
// expected and every lookup returns all matches for the caller to
// disambiguate by decryption.
type Contacts struct {
	entries []Contact
	metrics *instrument.Metrics
}

// NewContacts returns an empty table with room for capacity contacts.
func NewContacts(capacity int) *Contacts {
	return &Contacts{entries: make([]Contact, 0, capacity)}
}

// SetMetrics attaches m as the destination for the contact-table-full
// counter; nil (the default) disables counting without affecting
// behavior.
func (c *Contacts) SetMetrics(m *instrument.Metrics) { c.metrics = m }

// FindByHash returns the indices of every contact whose HashID matches
// hash, in table order.
func (c *Contacts) FindByHash(hash byte) []int {
	var out []int
	for i := range c.entries {
		if c.entries[i].valid && c.entries[i].HashID == hash {
			out = append(out, i)
		}
	}
	return out
}

// FindByPublicKey returns the index of the contact with the given
// public key, or -1 if none matches.
func (c *Contacts) FindByPublicKey(pub []byte) int {
	for i := range c.entries {
		if !c.entries[i].valid {
			continue
		}
		if string(c.entries[i].PublicKey) == string(pub) {
			return i
		}
	}
	return -1
}

// Get returns a pointer to the contact at idx, or nil if idx is out of
// range or that slot is unused.
func (c *Contacts) Get(idx int) *Contact {
	if idx < 0 || idx >= len(c.entries) || !c.entries[idx].valid {
		return nil
	}
	return &c.entries[idx]
}

// Len returns the number of contacts currently stored (not the
// table's capacity).
func (c *Contacts) Len() int {
	n := 0
	for i := range c.entries {
		if c.entries[i].valid {
			n++
		}
	}
	return n
}

// Add inserts a new contact, reusing an invalidated slot if one
// exists before growing. Returns mesh.ErrContactTableFull once the
// table is at capacity.
func (c *Contacts) Add(pub []byte, secret [crypto.SharedSecretSize]byte, name string, timestamp uint32) (int, error) {
	for i := range c.entries {
		if !c.entries[i].valid {
			c.entries[i] = Contact{
				PublicKey:           append([]byte(nil), pub...),
				HashID:              crypto.HashIDFromPublicKey(pub),
				Name:                name,
				Secret:              secret,
				LastAdvertTimestamp: timestamp,
				valid:               true,
			}
			return i, nil
		}
	}
	if len(c.entries) >= cap(c.entries) {
		if c.metrics != nil {
			c.metrics.ContactFull.Inc()
		}
		return -1, mesh.ErrContactTableFull
	}
	c.entries = append(c.entries, Contact{
		PublicKey:           append([]byte(nil), pub...),
		HashID:              crypto.HashIDFromPublicKey(pub),
		Name:                name,
		Secret:              secret,
		LastAdvertTimestamp: timestamp,
		valid:               true,
	})
	return len(c.entries) - 1, nil
}

// SetOutPath records a learned direct route back to the contact at
// idx, unconditionally overwriting whatever path was stored before.
// The newest path always wins rather than only being accepted when
// shorter than what's already stored, since a longer but current path
// beats a shorter but stale one.
func (c *Contacts) SetOutPath(idx int, path []byte) {
	ct := c.Get(idx)
	if ct == nil {
		return
	}
	n := copy(ct.OutPath[:], path)
	ct.OutPathLen = n
}

// Recent returns up to n contact indices ordered by most-recently
// advertised first. Grounded on BaseChatMesh.cpp's scanRecentContacts,
// but without its static-global-comparator-smuggled-into-qsort
// antipattern: this sorts a plain slice of indices with sort.Slice and
// a closure over c.entries, which needs no package-level mutable state
// at all.
func (c *Contacts) Recent(n int) []int {
	idxs := make([]int, 0, len(c.entries))
	for i := range c.entries {
		if c.entries[i].valid {
			idxs = append(idxs, i)
		}
	}
	sort.Slice(idxs, func(a, b int) bool {
		return c.entries[idxs[a]].LastAdvertTimestamp > c.entries[idxs[b]].LastAdvertTimestamp
	})
	if n >= 0 && n < len(idxs) {
		idxs = idxs[:n]
	}
	return idxs
}
