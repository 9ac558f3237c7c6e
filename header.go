package dict

// The file header: magic, format version, option flags, header size
// and the attribute block.

import (
	"encoding/binary"
	"errors"
	"sort"
	"unicode/utf8"
)

// MAGIC is the fixed four-byte prefix of every dictionary file.
const MAGIC = "\x9b\xc1\x35\x18"

const headerFixedSize = 12

// Option flag bits.
const (
	// headerFlagFastFlushed marks a file written without garbage
	// collection; it may contain tombstoned index entries.
	headerFlagFastFlushed uint16 = 1 << 0
)

// Recognised attribute keys.
const (
	AttrDictionary = "dictionary"
	AttrVersion    = "version"
	AttrDate       = "date"
)

var (
	ErrBadMagic           = errors.New("dict: not a dictionary file")
	ErrUnsupportedVersion = errors.New("dict: unsupported format version")
	errHeaderTruncated    = errors.New("dict: truncated header")
)

type Header struct {
	Version     FormatVersion
	OptionFlags uint16
	Attributes  map[string]string
}

func newHeader(version FormatVersion, locale string) *Header {
	return &Header{
		Version: version,
		Attributes: map[string]string{
			AttrDictionary: "main:" + locale,
			AttrVersion:    "1",
		},
	}
}

func (h *Header) copy() *Header {
	c := &Header{Version: h.Version, OptionFlags: h.OptionFlags, Attributes: map[string]string{}}
	for k, v := range h.Attributes {
		c.Attributes[k] = v
	}
	return c
}

// attribute applies the question-mark policy: a missing or non-UTF-8
// value reads as "?".
func (h *Header) attribute(key string) string {
	v, ok := h.Attributes[key]
	if !ok || !utf8.ValidString(v) {
		return "?"
	}
	return v
}

// write serialises the header. Attributes are written in sorted key
// order so that equal headers produce equal bytes.
func (h *Header) write(w *byteWriter) {
	keys := make([]string, 0, len(h.Attributes))
	for k := range h.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var attrs byteWriter
	for _, k := range keys {
		attrs.data = append(attrs.data, k...)
		attrs.u8(0)
		attrs.data = append(attrs.data, h.Attributes[k]...)
		attrs.u8(0)
	}
	attrs.u8(0) // empty key terminates the block

	w.data = append(w.data, MAGIC...)
	w.u16(uint16(h.Version))
	w.u16(h.OptionFlags)
	w.u32(uint32(headerFixedSize + len(attrs.data)))
	w.data = append(w.data, attrs.data...)
}

// parseHeader reads the header from the start of data and returns it
// together with the body offset.
func parseHeader(data []byte) (*Header, int, error) {
	if len(data) < headerFixedSize {
		return nil, 0, errHeaderTruncated
	}
	if string(data[:4]) != MAGIC {
		return nil, 0, ErrBadMagic
	}
	version := FormatVersion(binary.LittleEndian.Uint16(data[4:]))
	if !version.Supported() {
		return nil, 0, ErrUnsupportedVersion
	}
	flags := binary.LittleEndian.Uint16(data[6:])
	size := int(binary.LittleEndian.Uint32(data[8:]))
	if size < headerFixedSize || size > len(data) {
		return nil, 0, errHeaderTruncated
	}

	h := &Header{Version: version, OptionFlags: flags, Attributes: map[string]string{}}
	block := data[headerFixedSize:size]
	for {
		key, rest, err := takeZStr(block)
		if err != nil {
			return nil, 0, err
		}
		if len(key) == 0 {
			break
		}
		value, rest2, err := takeZStr(rest)
		if err != nil {
			return nil, 0, err
		}
		h.Attributes[string(key)] = string(value)
		block = rest2
	}
	return h, size, nil
}

func takeZStr(b []byte) ([]byte, []byte, error) {
	for i, c := range b {
		if c == 0 {
			return b[:i], b[i+1:], nil
		}
	}
	return nil, nil, errHeaderTruncated
}
