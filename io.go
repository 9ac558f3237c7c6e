package dict

// File-level open and flush. Opening maps the file read-only, parses
// the header and body into the runtime structures and drops the
// mapping. A fast flush writes in place and keeps tombstones; a GC
// flush writes a compacted copy to a sibling file and atomically
// renames it over the target.

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

// Open loads a dictionary file. Unknown magics and versions, and any
// in-body reference out of range, fail the open.
func Open(path string, updatable bool) (*Dictionary, error) {
	m, err := OpenMappedFile(path)
	if err != nil {
		return nil, err
	}
	buf := m.Buffer()
	defer buf.Close()
	d, err := parseDictionary(buf)
	if err != nil {
		return nil, err
	}
	d.updatable = updatable
	return d, nil
}

func parseDictionary(buf *DictBuffer) (*Dictionary, error) {
	data, err := buf.Slice(0, buf.Len())
	if err != nil {
		return nil, err
	}
	h, bodyOffset, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r, err := buf.reader(bodyOffset)
	if err != nil {
		return nil, err
	}
	words, err := readWordStore(r)
	if err != nil {
		return nil, err
	}
	bigrams, err := readBigramStore(r)
	if err != nil {
		return nil, err
	}
	if !r.done() {
		return nil, errTruncated
	}
	if err := bigrams.check(words); err != nil {
		return nil, err
	}
	return &Dictionary{
		header:   h,
		words:    words,
		bigrams:  bigrams,
		cacheGen: ^uint64(0),
	}, nil
}

func (d *Dictionary) serialize(fastFlush bool) *DictBuffer {
	h := d.header.copy()
	if fastFlush {
		h.OptionFlags |= headerFlagFastFlushed
	} else {
		h.OptionFlags &^= headerFlagFastFlushed
	}
	var w byteWriter
	h.write(&w)
	d.words.write(&w)
	d.bigrams.write(&w, fastFlush)
	buf := NewDictBuffer()
	buf.Append(w.data)
	return buf
}

// Flush persists the current state in place. Tombstoned index
// entries are written as-is; this is the fast path.
func (d *Dictionary) Flush(path string) error {
	advanceClock()
	buf := d.serialize(true)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	d.header.OptionFlags |= headerFlagFastFlushed
	return nil
}

// FlushWithGC persists a compacted copy: terminals are re-inserted
// in traversal order into a fresh store, so the file has no
// tombstones and no unreachable nodes. The write goes to a sibling
// path and renames over the target. Terminal positions and iteration
// tokens minted before the call are invalid afterwards.
func (d *Dictionary) FlushWithGC(path string) error {
	advanceClock()
	nd, err := d.compactTo(d.header.Version)
	if err != nil {
		return err
	}
	buf := nd.serialize(false)
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return err
	}
	d.adopt(nd)
	return nil
}
