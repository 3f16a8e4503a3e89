package mesh

import "errors"

// Error kinds this package defines. Nothing escapes Mesh.Loop as a
// raised error: every one of these is converted at the loop boundary
// (or at the point of detection, for the internal ones) into a
// counter increment, a DEBUG log line, or — for ErrUnknownCommand
// only — a user-visible reply string.
var (
	// ErrPoolExhausted is returned by the packet pool's Alloc when no
	// free slot remains. Counted via full_events.
	ErrPoolExhausted = errors.New("mesh: packet pool exhausted")

	// ErrReplaySuspected is returned when an authenticated message's
	// timestamp does not strictly exceed the sender's last known
	// timestamp. Dropped with a debug log, no ACK.
	ErrReplaySuspected = errors.New("mesh: replay suspected")

	// ErrContactTableFull is returned when a new contact cannot be
	// inserted because the table is at MAX_CONTACTS.
	ErrContactTableFull = errors.New("mesh: contact table full")

	// ErrUnknownContact is returned when an operation names a contact
	// index that the table has no entry for.
	ErrUnknownContact = errors.New("mesh: unknown contact")

	// ErrPathTooLong is returned when a path would grow beyond
	// MAX_PATH_SIZE hops; the packet is dropped, not forwarded.
	ErrPathTooLong = errors.New("mesh: path too long")

	// ErrRadioInitFailed is the only fatal error kind: it can only
	// occur during Mesh.Begin, and the caller is expected to halt
	// after logging it.
	ErrRadioInitFailed = errors.New("mesh: radio init failed")

	// ErrInvalidAdvert is returned when an advertisement fails to
	// parse, is missing a required field, or fails signature
	// verification.
	ErrInvalidAdvert = errors.New("mesh: invalid advertisement")

	// ErrUnknownCommand is returned by the CLI command handler for an
	// unrecognized admin/chat command; the caller replies with help
	// text rather than treating this as an internal failure.
	ErrUnknownCommand = errors.New("mesh: unknown command")
)
