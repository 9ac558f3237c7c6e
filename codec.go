package dict

// Variable-length integer and codepoint-run codecs used by the file
// format. All reads go through byteReader, which turns any
// out-of-range access into a sticky error instead of panicking; the
// error surfaces as a corruption failure at open time.

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errTruncated = errors.New("dict: truncated or out-of-range read")

type byteReader struct {
	data []byte
	pos  int
	err  error
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) fail() {
	if r.err == nil {
		r.err = errTruncated
	}
}

func (r *byteReader) u8() uint8 {
	if r.err != nil || r.pos+1 > len(r.data) {
		r.fail()
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *byteReader) u16() uint16 {
	if r.err != nil || r.pos+2 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *byteReader) u32() uint32 {
	if r.err != nil || r.pos+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *byteReader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		r.fail()
		return 0
	}
	r.pos += n
	return v
}

// count reads a uvarint that is about to size an allocation and
// sanity-bounds it against the remaining input, so a corrupt length
// cannot make us allocate gigabytes.
func (r *byteReader) count() int {
	v := r.uvarint()
	if r.err == nil && v > uint64(len(r.data)-r.pos) {
		r.fail()
		return 0
	}
	return int(v)
}

// codePoints reads a length-prefixed codepoint run.
func (r *byteReader) codePoints() []rune {
	n := r.count()
	if r.err != nil || n == 0 {
		return nil
	}
	cps := make([]rune, n)
	for i := range cps {
		cps[i] = rune(r.uvarint())
	}
	if r.err != nil {
		return nil
	}
	return cps
}

func (r *byteReader) done() bool { return r.err == nil && r.pos == len(r.data) }

// Writer side. The body is built in memory and written out in one
// piece, so a plain growing slice is all we need.

type byteWriter struct {
	data []byte
}

func (w *byteWriter) u8(v uint8)   { w.data = append(w.data, v) }
func (w *byteWriter) u16(v uint16) { w.data = binary.LittleEndian.AppendUint16(w.data, v) }
func (w *byteWriter) u32(v uint32) { w.data = binary.LittleEndian.AppendUint32(w.data, v) }

func (w *byteWriter) uvarint(v uint64) {
	w.data = binary.AppendUvarint(w.data, v)
}

func (w *byteWriter) codePoints(cps []rune) {
	w.uvarint(uint64(len(cps)))
	for _, cp := range cps {
		w.uvarint(uint64(uint32(cp)))
	}
}

// checkWord validates a word against the length bounds shared by
// every public operation that accepts codepoints.
func checkWord(word []rune) error {
	if len(word) == 0 {
		return errors.New("dict: empty word")
	}
	if len(word) > MAX_WORD_LENGTH {
		return fmt.Errorf("dict: word length %d exceeds %d", len(word), MAX_WORD_LENGTH)
	}
	return nil
}
