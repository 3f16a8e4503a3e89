package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NyanHelsing/MeshCore/crypto"
)

// harnessPeer records everything a fakeApp learned about a remote node,
// enough to try decrypting any packet claiming to be from it.
type harnessPeer struct {
	pub    []byte
	hashID byte
	secret [crypto.SharedSecretSize]byte
}

// fakeApp is a minimal MeshApp used only to exercise Dispatcher/Router
// behavior across a simulated multi-node topology; it is not a stand-in
// for repeater.Repeater's actual policy decisions.
type fakeApp struct {
	identity *crypto.Identity
	peers    []harnessPeer
	forward  bool
	budget   float64
	received [][]byte
	acked    [][]byte
	acksSeen int
	timedOut int
}

func newFakeApp(identity *crypto.Identity, forward bool) *fakeApp {
	return &fakeApp{identity: identity, forward: forward, budget: 0.1}
}

func (a *fakeApp) addPeer(other *crypto.Identity) {
	secret, err := a.identity.SharedSecret(other.PublicKey())
	if err != nil {
		panic(err)
	}
	a.peers = append(a.peers, harnessPeer{pub: other.PublicKey(), hashID: other.HashID(), secret: secret})
}

func (a *fakeApp) AllowPacketForward(pkt *Packet) bool { return a.forward }
func (a *fakeApp) GetAirtimeBudgetFactor() float64     { return a.budget }
func (a *fakeApp) OnAdvertRecv(senderPub []byte, timestamp uint32, appData []byte, pkt *Packet) {
}
func (a *fakeApp) OnAnonDataRecv(pkt *Packet, senderPub []byte, plaintext []byte) {}

func (a *fakeApp) SearchPeersByHash(hashID byte) []int {
	var out []int
	for i, p := range a.peers {
		if p.hashID == hashID {
			out = append(out, i)
		}
	}
	return out
}

func (a *fakeApp) GetPeerSharedSecret(peerIdx int) ([crypto.SharedSecretSize]byte, bool) {
	if peerIdx < 0 || peerIdx >= len(a.peers) {
		return [crypto.SharedSecretSize]byte{}, false
	}
	return a.peers[peerIdx].secret, true
}

func (a *fakeApp) OnPeerDataRecv(pkt *Packet, peerIdx int, plaintext []byte) {
	a.received = append(a.received, append([]byte(nil), plaintext...))
}

func (a *fakeApp) OnPeerPathRecv(pkt *Packet, peerIdx int, path []byte, extra []byte) {}

func (a *fakeApp) OnAckRecv(ackHash []byte) bool {
	a.acksSeen++
	a.acked = append(a.acked, append([]byte(nil), ackHash...))
	return true
}

func (a *fakeApp) SearchChannelsByHash(hashID byte) []int { return nil }
func (a *fakeApp) GetChannelSecret(channelIdx int) ([crypto.SharedSecretSize]byte, bool) {
	return [crypto.SharedSecretSize]byte{}, false
}
func (a *fakeApp) OnGroupDataRecv(pkt *Packet, channelIdx int, plaintext []byte) {}
func (a *fakeApp) OnSendTimeout(pkt *Packet)                                     { a.timedOut++ }

type harnessNode struct {
	identity *crypto.Identity
	app      *fakeApp
	mesh     *Mesh
}

func newHarnessNode(t *testing.T, seed byte, radio Radio, clk *fakeClock, forward bool) *harnessNode {
	t.Helper()
	identity, err := crypto.NewRandom(deterministicRandReader{seed: seed})
	require.NoError(t, err)
	app := newFakeApp(identity, forward)
	m := New(radio, identity, app, clk, 0, 0, nil)
	return &harnessNode{identity: identity, app: app, mesh: m}
}

// deterministicRandReader is a trivial non-cryptographic entropy stand-in
// so test identities are reproducible; never used outside tests.
type deterministicRandReader struct {
	seed byte
}

func (r deterministicRandReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.seed + byte(i)
	}
	return len(p), nil
}

// pumpUntilQuiescent drives every node's Loop for the given number of
// ticks, advancing clk between ticks so that Router's randomized flood
// retransmit backoff (scheduled via clock.FutureMillis) eventually
// comes due; a clock frozen at its initial value would leave every
// scheduled retransmission permanently in the future.
func pumpUntilQuiescent(clk *fakeClock, nodes []*harnessNode, ticks int) {
	for i := 0; i < ticks; i++ {
		for _, n := range nodes {
			n.mesh.Loop()
		}
		clk.ms += 50
	}
}

func TestFloodDeliveryAndDedupAcrossThreeNodeLine(t *testing.T) {
	clk := &fakeClock{}
	medium := NewMemoryMedium()

	a := newHarnessNode(t, 1, medium.NewRadio("a", 5470), clk, true)
	b := newHarnessNode(t, 2, medium.NewRadio("b", 5470), clk, true)
	c := newHarnessNode(t, 3, medium.NewRadio("c", 5470), clk, true)

	// Line topology: a <-> b <-> c, a and c cannot hear each other.
	medium.Reachable = func(from, to *MemoryRadio) bool {
		pair := from.Name + to.Name
		switch pair {
		case "ac", "ca":
			return false
		default:
			return true
		}
	}

	a.app.addPeer(c.identity)
	c.app.addPeer(a.identity)
	secret, err := a.identity.SharedSecret(c.identity.PublicKey())
	require.NoError(t, err)

	msg := []byte("hello from a to c, via b")
	_, err = a.mesh.SendFlood(PayloadTxtMsg, a.identity.HashID(), 100, secret, msg, 0, 0)
	require.NoError(t, err)

	nodes := []*harnessNode{a, b, c}
	pumpUntilQuiescent(clk, nodes, 20)

	// c must receive exactly once even though it also hears a's
	// original broadcast relayed back through b a second time: dedup
	// hashes only header+ciphertext, so the accumulated hop in the
	// relayed copy's path does not defeat suppression.
	require.Len(t, c.app.received, 1)
	assert.Equal(t, msg, c.app.received[0])

	// b must not have delivered it locally, having no shared secret
	// with a; it only relays. a has no shared secret with itself
	// either, so its own bounced-back copy is never delivered.
	assert.Empty(t, b.app.received)
	assert.Empty(t, a.app.received)
}

func TestAckRoundtripBetweenTwoDirectlyLinkedNodes(t *testing.T) {
	clk := &fakeClock{}
	medium := NewMemoryMedium()

	a := newHarnessNode(t, 11, medium.NewRadio("a", 5470), clk, true)
	b := newHarnessNode(t, 22, medium.NewRadio("b", 5470), clk, true)

	a.app.addPeer(b.identity)
	b.app.addPeer(a.identity)
	secret, err := a.identity.SharedSecret(b.identity.PublicKey())
	require.NoError(t, err)

	text := []byte("ping")
	sent, err := a.mesh.SendFlood(PayloadTxtMsg, a.identity.HashID(), 200, secret, text, 0, 0)
	require.NoError(t, err)
	expectedAck := ComputeAckHash(sent.Timestamp, 0, text, a.identity.PublicKey())
	a.mesh.Router.WaitForAck(sent, expectedAck)

	pumpUntilQuiescent(clk, []*harnessNode{a, b}, 5)
	require.Len(t, b.app.received, 1)

	ack, err := b.mesh.SendFlood(PayloadAck, b.identity.HashID(), 201, secret, expectedAck[:], 0, 0)
	require.NoError(t, err)
	_ = ack

	pumpUntilQuiescent(clk, []*harnessNode{a, b}, 5)

	assert.Equal(t, 1, a.app.acksSeen)
	assert.Equal(t, expectedAck[:], a.app.acked[0])
	assert.False(t, a.mesh.Router.MatchAck(expectedAck), "MatchAck should be a one-shot consuming check; the ack was already delivered via HandleFrame")
}
