package repeater

import (
	"github.com/NyanHelsing/MeshCore/crypto"
	"github.com/NyanHelsing/MeshCore/mesh"
)

// Channel is a group channel the repeater is a member of: a
// symmetric PSK and its derived wire hash.
type Channel struct {
	Name   string
	PSK    []byte
	Hash   byte
	Secret [crypto.SharedSecretSize]byte
}

// Channels is a static, admin-configured list of group channel
// memberships.
type Channels struct {
	entries []Channel
}

// NewChannels returns an empty channel list.
func NewChannels() *Channels {
	return &Channels{}
}

// Add registers a channel from a base64-encoded PSK (the admin CLI's
// "add channel <name> <psk>" form, per simple_repeater's addChannel).
func (c *Channels) Add(name, pskBase64 string) error {
	psk, err := mesh.DecodeGroupPSK(pskBase64)
	if err != nil {
		return err
	}
	c.entries = append(c.entries, Channel{
		Name:   name,
		PSK:    psk,
		Hash:   mesh.ChannelHash(psk),
		Secret: mesh.ChannelSecret(psk),
	})
	return nil
}

// FindByHash returns the indices of every channel whose hash matches.
func (c *Channels) FindByHash(hash byte) []int {
	var out []int
	for i := range c.entries {
		if c.entries[i].Hash == hash {
			out = append(out, i)
		}
	}
	return out
}

// Get returns a pointer to the channel at idx, or nil if out of range.
func (c *Channels) Get(idx int) *Channel {
	if idx < 0 || idx >= len(c.entries) {
		return nil
	}
	return &c.entries[idx]
}
