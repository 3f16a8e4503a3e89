package repeater

import (
	"fmt"
	"strconv"
	"strings"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/NyanHelsing/MeshCore/board"
	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/core/clock"
	"github.com/NyanHelsing/MeshCore/crypto"
	"github.com/NyanHelsing/MeshCore/internal/instrument"
	"github.com/NyanHelsing/MeshCore/mesh"
	"github.com/NyanHelsing/MeshCore/mesh/advert"
)

// FirmwareVerText is returned by the "ver" admin command.
const FirmwareVerText = "MeshCore Go repeater v0.1"

const helpText = `commands: reboot, advert, clock, clock sync, set af <factor>, ver`

// CmdGetStats is the single-byte REQ command code asking for a Stats
// snapshot, matching simple_repeater/main.cpp's CMD_GET_STATS.
const CmdGetStats byte = 0x01

// Send delays, in milliseconds, for self-generated transmissions that
// should not collide on-air with whatever frame immediately preceded
// them: a self-advert rides behind a just-sent reply, and a CLI reply
// rides behind the ack just sent for the same incoming message.
const (
	selfAdvertDelayMillis = 800
	cliReplyDelayMillis   = 1500
)

// SendStatus reports how Repeater.SendMessage disposed of a message.
type SendStatus int

const (
	SendFailed SendStatus = iota
	SentDirect
	SentFlood
)

func (s SendStatus) String() string {
	switch s {
	case SentDirect:
		return "SENT_DIRECT"
	case SentFlood:
		return "SENT_FLOOD"
	default:
		return "FAILED"
	}
}

// Repeater is a mesh.MeshApp implementing the reference firmware's
// chat-repeater behavior: always forwards flood traffic, accepts an
// admin login over ANON_REQ, answers GET_STATS and a small text CLI,
// and relays group channel traffic transparently.
type Repeater struct {
	identity *crypto.Identity
	contacts *Contacts
	channels *Channels

	clk clock.MillisClock
	rtc clock.RTCClock

	board board.Board

	name string
	lat  float32
	lon  float32

	adminPassword       string
	airtimeBudgetFactor float64

	log *logging.Logger

	mesh    *mesh.Mesh // set via Attach once mesh.New has wired this app in
	metrics *instrument.Metrics
}

// New returns a Repeater configured from cfg, identified by identity,
// running on brd, timed by clk/rtc. Call Attach once the owning
// mesh.Mesh has been constructed.
func New(identity *crypto.Identity, cfg config.Node, brd board.Board, clk clock.MillisClock, rtc clock.RTCClock, log *logging.Logger) (*Repeater, error) {
	r := &Repeater{
		identity:            identity,
		contacts:            NewContacts(cfg.MaxContacts),
		channels:            NewChannels(),
		clk:                 clk,
		rtc:                 rtc,
		board:               brd,
		name:                cfg.Name,
		lat:                 cfg.Lat,
		lon:                 cfg.Lon,
		adminPassword:       cfg.AdminPassword,
		airtimeBudgetFactor: cfg.AirtimeBudgetFactor,
		log:                 log,
	}
	for _, ch := range cfg.Channels {
		if err := r.channels.Add(ch.Name, ch.PSK); err != nil {
			return nil, fmt.Errorf("repeater: channel %q: %w", ch.Name, err)
		}
	}
	return r, nil
}

// Attach wires the Repeater to the mesh.Mesh it is the MeshApp for, so
// it can send replies. Must be called once, after mesh.New. Also picks
// up m.Metrics (possibly nil) for the replay-guard and contact-table
// counters this package owns.
func (r *Repeater) Attach(m *mesh.Mesh) {
	r.mesh = m
	r.metrics = m.Metrics
	r.contacts.SetMetrics(m.Metrics)
}

// AllowPacketForward always returns true: a repeater's purpose is to
// extend flood reach, grounded on simple_repeater/main.cpp's
// allowPacketForward.
func (r *Repeater) AllowPacketForward(pkt *mesh.Packet) bool { return true }

// GetAirtimeBudgetFactor returns the configured (and admin-adjustable
// via "set af") fraction of uptime this node may transmit.
func (r *Repeater) GetAirtimeBudgetFactor() float64 { return r.airtimeBudgetFactor }

// OnAdvertRecv inserts or refreshes a contact from a verified
// advertisement, enforcing strict-monotone advert timestamps: the
// replay guard applies to adverts too, not just messages.
func (r *Repeater) OnAdvertRecv(senderPub []byte, timestamp uint32, appData []byte, pkt *mesh.Packet) {
	ad, err := advert.Unmarshal(appData)
	if err != nil {
		if r.log != nil {
			r.log.Debugf("advert: bad app_data: %v", err)
		}
		return
	}

	idx := r.contacts.FindByPublicKey(senderPub)
	if idx < 0 {
		secret, err := r.identity.SharedSecret(senderPub)
		if err != nil {
			return
		}
		idx, err = r.contacts.Add(senderPub, secret, ad.Name, timestamp)
		if err != nil {
			if r.log != nil {
				r.log.Noticef("contact table full, dropping advert from %x", senderPub[:4])
			}
			return
		}
		if r.log != nil {
			r.log.Infof("new contact %q (hash %02x)", ad.Name, crypto.HashIDFromPublicKey(senderPub))
		}
		return
	}

	ct := r.contacts.Get(idx)
	if timestamp <= ct.LastAdvertTimestamp {
		if r.metrics != nil {
			r.metrics.ReplayRejects.Inc()
		}
		return // stale/replayed advert, drop
	}
	ct.LastAdvertTimestamp = timestamp
	if ad.Name != "" {
		ct.Name = ad.Name
	}
}

// OnAnonDataRecv implements the admin login flow: an ANON_REQ
// plaintext carrying exactly the admin password grants the sender an
// admin contact entry and an "OK" reply, grounded on
// simple_repeater/main.cpp's onAnonDataRecv.
func (r *Repeater) OnAnonDataRecv(pkt *mesh.Packet, senderPub []byte, plaintext []byte) {
	if string(plaintext) != r.adminPassword {
		return // wrong password: no reply, not even an error (no login oracle)
	}

	secret, err := r.identity.SharedSecret(senderPub)
	if err != nil {
		return
	}
	idx := r.contacts.FindByPublicKey(senderPub)
	if idx < 0 {
		idx, err = r.contacts.Add(senderPub, secret, "admin", r.rtc.CurrentTime())
		if err != nil {
			return
		}
	}
	ct := r.contacts.Get(idx)
	ct.IsAdmin = true

	r.replyTo(pkt, idx, []byte("OK"))
}

// SearchPeersByHash delegates to the contact table.
func (r *Repeater) SearchPeersByHash(hashID byte) []int { return r.contacts.FindByHash(hashID) }

// GetPeerSharedSecret delegates to the contact table.
func (r *Repeater) GetPeerSharedSecret(peerIdx int) ([crypto.SharedSecretSize]byte, bool) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return [crypto.SharedSecretSize]byte{}, false
	}
	return ct.Secret, true
}

// OnPeerDataRecv enforces the replay guard, then dispatches REQ/TXT_MSG
// payloads.
func (r *Repeater) OnPeerDataRecv(pkt *mesh.Packet, peerIdx int, plaintext []byte) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return
	}
	if pkt.Timestamp <= ct.LastTimestamp {
		if r.metrics != nil {
			r.metrics.ReplayRejects.Inc()
		}
		if r.log != nil {
			r.log.Debugf("replay suspected from contact %d, dropping", peerIdx)
		}
		return // replay: drop silently, no ack
	}
	ct.LastTimestamp = pkt.Timestamp

	switch pkt.Type {
	case mesh.PayloadReq:
		r.handleRequest(pkt, peerIdx, plaintext)
	case mesh.PayloadTxtMsg:
		r.handleTextMessage(pkt, peerIdx, plaintext)
	}
}

func (r *Repeater) handleRequest(pkt *mesh.Packet, peerIdx int, plaintext []byte) {
	if len(plaintext) < 1 {
		return
	}
	switch plaintext[0] {
	case CmdGetStats:
		reply := r.Stats().Encode(r.rtc.CurrentTime())
		r.sendResponse(pkt, peerIdx, reply)
	}
}

func (r *Repeater) handleTextMessage(pkt *mesh.Packet, peerIdx int, plaintext []byte) {
	r.sendAck(pkt, peerIdx, plaintext)

	ct := r.contacts.Get(peerIdx)
	if ct == nil || !ct.IsAdmin {
		return
	}
	reply, err := r.dispatchCommand(strings.TrimSpace(string(plaintext)), pkt.Timestamp)
	if err != nil {
		reply = helpText
	}
	r.sendCLIReply(pkt, peerIdx, reply)
}

// dispatchCommand implements the admin text CLI, grounded on
// simple_repeater/main.cpp's handleCommand.
func (r *Repeater) dispatchCommand(line string, senderTimestamp uint32) (string, error) {
	lower := strings.ToLower(line)
	switch {
	case lower == "reboot":
		r.board.Reboot()
		return "rebooting...", nil
	case lower == "advert":
		if _, err := r.SendSelfAdvert(); err != nil {
			return "", err
		}
		return "advert sent", nil
	case lower == "clock sync":
		r.rtc.SetCurrentTime(senderTimestamp)
		return fmt.Sprintf("clock set to %d", senderTimestamp), nil
	case lower == "clock":
		return fmt.Sprintf("%d", r.rtc.CurrentTime()), nil
	case strings.HasPrefix(lower, "set af "):
		f, err := strconv.ParseFloat(strings.TrimSpace(lower[len("set af "):]), 64)
		if err != nil {
			return "", mesh.ErrUnknownCommand
		}
		r.airtimeBudgetFactor = f
		return fmt.Sprintf("airtime budget factor set to %.3f", f), nil
	case lower == "ver":
		return FirmwareVerText, nil
	default:
		return helpText, mesh.ErrUnknownCommand
	}
}

// OnPeerPathRecv unconditionally overwrites the learned out_path to
// peerIdx and matches any piggybacked ack. Always overwrite, never
// compare-and-keep-shorter.
func (r *Repeater) OnPeerPathRecv(pkt *mesh.Packet, peerIdx int, path []byte, extra []byte) {
	r.contacts.SetOutPath(peerIdx, path)
	if len(extra) >= mesh.AckHashSize {
		var ackHash mesh.AckWaitKey
		copy(ackHash[:], extra[:mesh.AckHashSize])
		r.mesh.Router.MatchAck(ackHash)
	}
}

// OnAckRecv is a no-op for the repeater beyond what the dispatcher
// already did (cancel the router's wait): nothing here tracks
// message-delivered UI state, since the repeater has no chat history
// of its own.
func (r *Repeater) OnAckRecv(ackHash []byte) bool { return true }

// SearchChannelsByHash delegates to the channel table.
func (r *Repeater) SearchChannelsByHash(hashID byte) []int { return r.channels.FindByHash(hashID) }

// GetChannelSecret delegates to the channel table.
func (r *Repeater) GetChannelSecret(channelIdx int) ([crypto.SharedSecretSize]byte, bool) {
	ch := r.channels.Get(channelIdx)
	if ch == nil {
		return [crypto.SharedSecretSize]byte{}, false
	}
	return ch.Secret, true
}

// OnGroupDataRecv just logs group traffic; this repeater does not
// keep a message history, only forwards it (AllowPacketForward
// already handles the flood-continuation side of that).
func (r *Repeater) OnGroupDataRecv(pkt *mesh.Packet, channelIdx int, plaintext []byte) {
	if r.log != nil {
		ch := r.channels.Get(channelIdx)
		name := ""
		if ch != nil {
			name = ch.Name
		}
		r.log.Debugf("group %q: %s", name, string(plaintext))
	}
}

// OnSendTimeout logs a dropped outbound send; the repeater does not
// retry on the application's behalf. Retry is a policy decision left
// to the caller that originated the send.
func (r *Repeater) OnSendTimeout(pkt *mesh.Packet) {
	if r.log != nil {
		r.log.Debugf("send timed out for packet type %d", pkt.Type)
	}
}

// SendSelfAdvert floods a signed advertisement describing this node,
// delayed to separate it from whatever frame was just sent.
func (r *Repeater) SendSelfAdvert() (*mesh.Packet, error) {
	appData, err := advert.AppData{Type: advert.NodeTypeRepeater, Name: r.name, Lat: r.lat, Lon: r.lon}.Marshal()
	if err != nil {
		return nil, err
	}
	return r.mesh.SendAdvert(r.rtc.CurrentTime(), appData, selfAdvertDelayMillis)
}

// Stats snapshots the node's current counters for GET_STATS.
func (r *Repeater) Stats() Stats {
	sentFlood, sentDirect, recvFlood, recvDirect := r.mesh.Router.Counters()
	return Stats{
		BattMilliVolts:   r.board.BattMilliVolts(),
		CurrTxQueueLen:   uint16(r.mesh.Router.QueueLen()),
		CurrFreeQueueLen: uint16(r.mesh.Pool.FreeCount()),
		LastRSSI:         0,
		NPacketsRecv:     recvFlood + recvDirect,
		NPacketsSent:     sentFlood + sentDirect,
		TotalAirTimeSecs: uint32(r.mesh.Router.TotalAirTimeMillis() / 1000),
		TotalUpTimeSecs:  r.clk.Millis() / 1000,
		NSentFlood:       sentFlood,
		NSentDirect:      sentDirect,
		NRecvFlood:       recvFlood,
		NRecvDirect:      recvDirect,
		NFullEvents:      r.mesh.Pool.FullEvents(),
	}
}

func (r *Repeater) sendResponse(pkt *mesh.Packet, peerIdx int, payload []byte) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return
	}
	if pkt.IsRouteFlood() {
		r.sendPathReturn(pkt, peerIdx, payload)
		return
	}
	r.sendDirectOrFlood(mesh.PayloadResponse, ct, payload, 0)
}

// sendAck acknowledges a received text message with the normative
// wire ACK payload: SHA256(timestamp||flags||text||sender_pub)[:4],
// where sender_pub is the contact's own key (they composed text, not
// us). flags is always 0 here — the reference firmware's only defined
// flag values are for app-level message formatting this repeater never
// sets.
func (r *Repeater) sendAck(pkt *mesh.Packet, peerIdx int, text []byte) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return
	}
	ackHash := mesh.ComputeAckHash(pkt.Timestamp, 0, text, ct.PublicKey)
	if pkt.IsRouteFlood() {
		r.sendPathReturn(pkt, peerIdx, ackHash[:])
		return
	}
	r.sendDirectOrFlood(mesh.PayloadAck, ct, ackHash[:], 0)
}

func (r *Repeater) sendCLIReply(pkt *mesh.Packet, peerIdx int, text string) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return
	}
	// +1 avoids reusing the same RTC second (and thus the same nonce
	// seed) as the ack just sent for this same message, matching
	// simple_repeater's CLI_REPLY_DELAY workaround. cliReplyDelayMillis
	// additionally staggers the actual airtime so the reply doesn't
	// contend with that same ack's transmission.
	now := r.rtc.CurrentTime() + 1
	if pkt.IsRouteFlood() && ct.OutPathLen == 0 {
		r.mesh.SendFlood(mesh.PayloadTxtMsg, r.identity.HashID(), now, ct.Secret, []byte(text), cliReplyDelayMillis, 0)
		return
	}
	path := append([]byte(nil), ct.OutPath[:ct.OutPathLen]...)
	if _, err := r.mesh.SendDirect(mesh.PayloadTxtMsg, r.identity.HashID(), now, ct.Secret, []byte(text), path, cliReplyDelayMillis, 0); err != nil {
		r.mesh.SendFlood(mesh.PayloadTxtMsg, r.identity.HashID(), now, ct.Secret, []byte(text), cliReplyDelayMillis, 0)
	}
}

// sendPathReturn replies along the reverse of pkt's accumulated flood
// path, teaching the original sender that same forward path as a
// learned direct route, with payload piggybacked as "extra" bytes.
// Grounded on BaseChatMesh.cpp's path-return + ACK piggyback.
func (r *Repeater) sendPathReturn(pkt *mesh.Packet, peerIdx int, extra []byte) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return
	}
	taught := append([]byte(nil), pkt.PathSlice()...)
	route := reversePath(taught)
	body := make([]byte, 0, 1+len(taught)+len(extra))
	body = append(body, byte(len(taught)))
	body = append(body, taught...)
	body = append(body, extra...)

	if _, err := r.mesh.SendDirect(mesh.PayloadPath, r.identity.HashID(), r.rtc.CurrentTime(), ct.Secret, body, route, 0, 0); err != nil {
		r.mesh.SendFlood(mesh.PayloadPath, r.identity.HashID(), r.rtc.CurrentTime(), ct.Secret, body, 0, 0)
	}
}

func (r *Repeater) sendDirectOrFlood(ptype mesh.PayloadType, ct *Contact, payload []byte, delayMillis uint32) {
	now := r.rtc.CurrentTime()
	if ct.OutPathLen > 0 {
		path := append([]byte(nil), ct.OutPath[:ct.OutPathLen]...)
		if _, err := r.mesh.SendDirect(ptype, r.identity.HashID(), now, ct.Secret, payload, path, delayMillis, 0); err == nil {
			return
		}
	}
	r.mesh.SendFlood(ptype, r.identity.HashID(), now, ct.Secret, payload, delayMillis, 0)
}

// replyTo sends payload back to whoever sent pkt, by path-return if
// pkt arrived by flood (we have no other route yet), otherwise direct.
func (r *Repeater) replyTo(pkt *mesh.Packet, peerIdx int, payload []byte) {
	if pkt.IsRouteFlood() {
		r.sendPathReturn(pkt, peerIdx, payload)
		return
	}
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return
	}
	r.sendDirectOrFlood(mesh.PayloadTxtMsg, ct, payload, 0)
}

// SendMessage originates a text message to peerIdx, bumping attempt on
// a deliberate retry so the nonce (and resulting packet hash) differs
// from any prior attempt at the same logical send, and arms a wait for
// the ack the recipient is expected to echo back. Mirrors
// BaseChatMesh.cpp's sendMessage/composeMsgPacket: prefer the learned
// direct path, fall back to flood.
func (r *Repeater) SendMessage(peerIdx int, attempt uint8, text string) (SendStatus, error) {
	ct := r.contacts.Get(peerIdx)
	if ct == nil {
		return SendFailed, mesh.ErrUnknownContact
	}

	now := r.rtc.CurrentTime()
	payload := []byte(text)

	var pkt *mesh.Packet
	var err error
	status := SendFailed
	if ct.OutPathLen > 0 {
		path := append([]byte(nil), ct.OutPath[:ct.OutPathLen]...)
		pkt, err = r.mesh.SendDirect(mesh.PayloadTxtMsg, r.identity.HashID(), now, ct.Secret, payload, path, 0, attempt)
		if err == nil {
			status = SentDirect
		}
	}
	if status == SendFailed {
		pkt, err = r.mesh.SendFlood(mesh.PayloadTxtMsg, r.identity.HashID(), now, ct.Secret, payload, 0, attempt)
		if err != nil {
			return SendFailed, err
		}
		status = SentFlood
	}

	ackHash := mesh.ComputeAckHash(now, 0, payload, r.identity.PublicKey())
	r.mesh.Router.WaitForAck(pkt, ackHash)
	return status, nil
}

func reversePath(p []byte) []byte {
	out := make([]byte, len(p))
	for i := range p {
		out[i] = p[len(p)-1-i]
	}
	return out
}

var _ mesh.MeshApp = (*Repeater)(nil)
