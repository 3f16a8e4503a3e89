package repeater

import (
	"bufio"
	"io"
)

// MaxCLILineLen bounds a single accumulated serial command line
// (examples/simple_repeater/main.cpp's fixed
// serial buffer). Bytes beyond this are dropped silently rather than
// growing the buffer, matching the firmware's fixed-size-array
// behavior rather than Go's usual "just append" idiom, since the
// overflow-truncates-don't-error semantics is itself part of the
// admin CLI's observable contract.
const MaxCLILineLen = 160

// CommandBuffer accumulates serial bytes into complete lines,
// splitting on '\r' or '\n' and silently truncating anything beyond
// MaxCLILineLen rather than growing without bound.
type CommandBuffer struct {
	buf []byte
}

// NewCommandBuffer returns an empty CommandBuffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{buf: make([]byte, 0, MaxCLILineLen)}
}

// Feed appends one byte. When b completes a line (a '\r' or '\n'), it
// returns the accumulated line (not including the terminator) and
// true, and resets the buffer for the next line. A lone '\n'
// immediately following a '\r' (or vice versa) yields an empty
// second line, which callers should ignore, matching how a CRLF
// terminal naturally drives this byte-at-a-time.
func (c *CommandBuffer) Feed(b byte) (string, bool) {
	if b == '\r' || b == '\n' {
		line := string(c.buf)
		c.buf = c.buf[:0]
		return line, true
	}
	if len(c.buf) >= MaxCLILineLen {
		return "", false
	}
	c.buf = append(c.buf, b)
	return "", false
}

// ReadLocalCommandLines reads bytes from in, one at a time,
// accumulating them into complete lines via a CommandBuffer and
// sending each one to lines. It returns once in is exhausted or
// returns an error other than io.EOF, closing lines on the way out.
//
// This only ever touches the CommandBuffer, never the Repeater itself:
// dispatching a parsed line into HandleLocalCommand happens back on
// whatever goroutine drives Mesh.Loop, since every MeshApp method
// (and dispatchCommand, which shares contacts/router state with them)
// is only safe to call from that single cooperative loop.
func ReadLocalCommandLines(in io.Reader, lines chan<- string) error {
	defer close(lines)
	buf := NewCommandBuffer()
	reader := bufio.NewReader(in)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line, complete := buf.Feed(b)
		if !complete || line == "" {
			continue
		}
		lines <- line
	}
}

// HandleLocalCommand dispatches a line read from the local serial
// console through the same admin command handler the mesh-borne CLI
// uses, matching simple_repeater/main.cpp's dual command sources: a
// command typed at the attached terminal and one delivered over the
// mesh both end up at handleCommand. Must be called from the same
// goroutine driving Mesh.Loop.
func (r *Repeater) HandleLocalCommand(line string) string {
	reply, err := r.dispatchCommand(line, r.rtc.CurrentTime())
	if err != nil {
		return helpText
	}
	return reply
}
