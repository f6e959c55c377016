package watch_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/syswatch/agent/internal/watch"
)

// rawRecord encodes one inotify-format event record: a 16-byte header
// followed by name NUL-padded to padTo bytes (padTo 0 means no name field).
func rawRecord(wd int32, mask uint32, name string, padTo int) []byte {
	if padTo < len(name) {
		panic("rawRecord: padTo shorter than name")
	}
	buf := make([]byte, watch.EventHeaderSize+padTo)
	binary.NativeEndian.PutUint32(buf[0:], uint32(wd))
	binary.NativeEndian.PutUint32(buf[4:], mask)
	binary.NativeEndian.PutUint32(buf[8:], 0)
	binary.NativeEndian.PutUint32(buf[12:], uint32(padTo))
	copy(buf[watch.EventHeaderSize:], name)
	return buf
}

// TestDecodeAll_BackToBackRecords verifies that a buffer holding several
// variable-length records, including a zero-length name and a padded name,
// decodes to exactly that many events with names and masks recovered.
func TestDecodeAll_BackToBackRecords(t *testing.T) {
	var buf []byte
	buf = append(buf, rawRecord(1, watch.MaskCreate, "foo.txt", 16)...)
	buf = append(buf, rawRecord(2, watch.MaskModify, "", 0)...)
	buf = append(buf, rawRecord(3, watch.MaskDelete, "a", 4)...)

	events, err := watch.DecodeAll(buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("decoded %d events, want 3", len(events))
	}

	if events[0].WD != 1 || events[0].Name != "foo.txt" || events[0].Kind() != watch.KindCreated {
		t.Errorf("event[0] = %+v, want wd=1 name=foo.txt kind=creation", events[0])
	}
	if events[1].WD != 2 || events[1].Name != "" || events[1].Kind() != watch.KindModified {
		t.Errorf("event[1] = %+v, want wd=2 no name kind=modification", events[1])
	}
	if events[2].WD != 3 || events[2].Name != "a" || events[2].Kind() != watch.KindDeleted {
		t.Errorf("event[2] = %+v, want wd=3 name=a kind=deletion", events[2])
	}
}

// TestDecodeAll_EmptyBuffer verifies that no events decode from no bytes.
func TestDecodeAll_EmptyBuffer(t *testing.T) {
	events, err := watch.DecodeAll(nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("decoded %d events from empty buffer, want 0", len(events))
	}
}

// TestDecodeAll_TruncatedHeader verifies that a trailing partial header stops
// decoding silently, keeping the full records already parsed.
func TestDecodeAll_TruncatedHeader(t *testing.T) {
	buf := rawRecord(5, watch.MaskCreate, "x", 4)
	buf = append(buf, 0x01, 0x02, 0x03) // 3 stray bytes, less than a header

	events, err := watch.DecodeAll(buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("decoded %d events, want 1", len(events))
	}
	if events[0].WD != 5 || events[0].Name != "x" {
		t.Errorf("event[0] = %+v, want wd=5 name=x", events[0])
	}
}

// TestDecodeAll_TruncatedName verifies that a header declaring more name
// bytes than the buffer holds yields ErrTruncatedName alongside the records
// parsed before it.
func TestDecodeAll_TruncatedName(t *testing.T) {
	buf := rawRecord(1, watch.MaskModify, "", 0)
	bad := rawRecord(2, watch.MaskCreate, "evil", 8)
	buf = append(buf, bad[:watch.EventHeaderSize+3]...) // cut the name short

	events, err := watch.DecodeAll(buf)
	if !errors.Is(err, watch.ErrTruncatedName) {
		t.Fatalf("DecodeAll error = %v, want ErrTruncatedName", err)
	}
	if len(events) != 1 {
		t.Fatalf("decoded %d events, want the 1 complete record", len(events))
	}
	if events[0].WD != 1 {
		t.Errorf("event[0].WD = %d, want 1", events[0].WD)
	}
}

// TestRawEvent_KindPrecedence verifies that when multiple kind bits are set
// the fixed precedence order applies: created, deleted, modified, moved-from,
// moved-to.
func TestRawEvent_KindPrecedence(t *testing.T) {
	tests := []struct {
		name string
		mask uint32
		want watch.Kind
	}{
		{"create beats modify", watch.MaskCreate | watch.MaskModify, watch.KindCreated},
		{"create beats delete", watch.MaskCreate | watch.MaskDelete, watch.KindCreated},
		{"delete beats modify", watch.MaskDelete | watch.MaskModify, watch.KindDeleted},
		{"modify beats moved-from", watch.MaskModify | watch.MaskMovedFrom, watch.KindModified},
		{"moved-from beats moved-to", watch.MaskMovedFrom | watch.MaskMovedTo, watch.KindMovedFrom},
		{"moved-to alone", watch.MaskMovedTo, watch.KindMovedTo},
		{"unrecognised bits default to modified", watch.MaskIsDir, watch.KindModified},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := watch.RawEvent{Mask: tc.mask}
			if got := ev.Kind(); got != tc.want {
				t.Errorf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestDecodeAll_NameStopsAtNUL verifies that kernel NUL padding is stripped
// and the cursor still advances by the full declared length.
func TestDecodeAll_NameStopsAtNUL(t *testing.T) {
	var buf []byte
	buf = append(buf, rawRecord(1, watch.MaskCreate, "ab", 16)...)
	buf = append(buf, rawRecord(2, watch.MaskDelete, "cd", 4)...)

	events, err := watch.DecodeAll(buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("decoded %d events, want 2", len(events))
	}
	if events[0].Name != "ab" {
		t.Errorf("event[0].Name = %q, want %q", events[0].Name, "ab")
	}
	if events[1].Name != "cd" {
		t.Errorf("event[1].Name = %q, want %q", events[1].Name, "cd")
	}
}

// TestKind_String verifies the observation log labels.
func TestKind_String(t *testing.T) {
	want := map[watch.Kind]string{
		watch.KindCreated:   "creation",
		watch.KindDeleted:   "deletion",
		watch.KindModified:  "modification",
		watch.KindMovedFrom: "moved from",
		watch.KindMovedTo:   "moved to",
	}
	for kind, label := range want {
		if got := kind.String(); got != label {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, label)
		}
	}
}
