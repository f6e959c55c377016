package watch

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Linux inotify event flag constants (kernel ABI — never change).
// These match the values in <sys/inotify.h>.
const (
	MaskModify    uint32 = 0x2        // IN_MODIFY: file content changed
	MaskMovedFrom uint32 = 0x40       // IN_MOVED_FROM: file moved out of watched dir
	MaskMovedTo   uint32 = 0x80       // IN_MOVED_TO: file moved into watched dir
	MaskCreate    uint32 = 0x100      // IN_CREATE: file/dir created in watched dir
	MaskDelete    uint32 = 0x200      // IN_DELETE: file/dir deleted from watched dir
	MaskQOverflow uint32 = 0x4000     // IN_Q_OVERFLOW: event queue overflowed
	MaskIsDir     uint32 = 0x40000000 // IN_ISDIR: subject of event is a directory
)

// EventHeaderSize is the fixed-width portion of a raw inotify_event record:
// wd (int32), mask, cookie, and the length of the trailing name field (each
// uint32). The name field, when present, follows immediately and is
// NUL-padded to the declared length.
const EventHeaderSize = 16

// ErrTruncatedName reports a record whose header declares more trailing name
// bytes than the buffer holds. Records decoded before the malformed one are
// still returned.
var ErrTruncatedName = errors.New("watch: event name field extends past buffer")

// RawEvent is one decoded inotify record. It is transient: constructed while
// decoding the read buffer, consumed to produce a log line, then discarded.
type RawEvent struct {
	// WD is the watch descriptor correlating the event to its registry
	// target.
	WD int32
	// Mask is the raw event bitmask.
	Mask uint32
	// Cookie correlates the two halves of a rename; unused here but decoded
	// so the cursor advances correctly.
	Cookie uint32
	// Name is the affected entry within the watched directory, with the
	// kernel's NUL padding stripped. Empty when the event names no entry.
	Name string
}

// Kind classifies a directory change.
type Kind int

const (
	// KindModified is the default classification, matching events whose
	// mask sets IN_MODIFY or no recognised bit at all.
	KindModified Kind = iota
	// KindCreated matches IN_CREATE.
	KindCreated
	// KindDeleted matches IN_DELETE.
	KindDeleted
	// KindMovedFrom matches IN_MOVED_FROM.
	KindMovedFrom
	// KindMovedTo matches IN_MOVED_TO.
	KindMovedTo
)

// String returns the label used in observation log lines.
func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "creation"
	case KindDeleted:
		return "deletion"
	case KindMovedFrom:
		return "moved from"
	case KindMovedTo:
		return "moved to"
	default:
		return "modification"
	}
}

// Kind maps the event's bitmask to a single Kind. When several bits are set
// the first match wins, in the fixed precedence order: created, deleted,
// modified, moved-from, moved-to.
func (e RawEvent) Kind() Kind {
	switch {
	case e.Mask&MaskCreate != 0:
		return KindCreated
	case e.Mask&MaskDelete != 0:
		return KindDeleted
	case e.Mask&MaskModify != 0:
		return KindModified
	case e.Mask&MaskMovedFrom != 0:
		return KindMovedFrom
	case e.Mask&MaskMovedTo != 0:
		return KindMovedTo
	default:
		return KindModified
	}
}

// cursor is a length-checked reader over the raw event buffer. It never reads
// past the declared buffer length; callers check remaining() before each
// fixed-size read.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

// header reads one fixed-size event header and advances the cursor. The
// caller must have checked remaining() >= EventHeaderSize.
func (c *cursor) header() (wd int32, mask, cookie, nameLen uint32) {
	b := c.buf[c.off:]
	wd = int32(binary.NativeEndian.Uint32(b))
	mask = binary.NativeEndian.Uint32(b[4:])
	cookie = binary.NativeEndian.Uint32(b[8:])
	nameLen = binary.NativeEndian.Uint32(b[12:])
	c.off += EventHeaderSize
	return wd, mask, cookie, nameLen
}

// name reads n NUL-padded name bytes, advances the cursor by exactly n, and
// returns the name with padding stripped.
func (c *cursor) name(n int) string {
	raw := c.buf[c.off : c.off+n]
	c.off += n
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// DecodeAll decodes the back-to-back variable-length event records in buf.
// Each record occupies exactly EventHeaderSize + declared name length bytes;
// a zero-length name has no name field at all.
//
// A trailing partial header ends decoding silently (a short read leaves
// whatever full records were already parsed). A header whose declared name
// length overruns the buffer ends decoding and additionally returns
// ErrTruncatedName alongside the records parsed so far.
func DecodeAll(buf []byte) ([]RawEvent, error) {
	var events []RawEvent

	c := cursor{buf: buf}
	for c.remaining() >= EventHeaderSize {
		wd, mask, cookie, nameLen := c.header()

		var name string
		if nameLen > 0 {
			if int(nameLen) > c.remaining() {
				return events, fmt.Errorf("%w: declared %d bytes, %d remain",
					ErrTruncatedName, nameLen, c.remaining())
			}
			name = c.name(int(nameLen))
		}

		events = append(events, RawEvent{WD: wd, Mask: mask, Cookie: cookie, Name: name})
	}

	return events, nil
}
