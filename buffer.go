package dict

// The byte region backing a dictionary. A read-only region wraps an
// mmap'ed file; an updatable region is a heap buffer with an append
// tail. Either way all access is bounds-checked through byteReader.

import (
	"errors"
	"os"
	"syscall"
)

type DictBuffer struct {
	data      []byte
	updatable bool
	mapped    *MappedFile
}

// NewDictBuffer returns an empty updatable buffer.
func NewDictBuffer() *DictBuffer {
	return &DictBuffer{updatable: true}
}

func (b *DictBuffer) Len() int        { return len(b.data) }
func (b *DictBuffer) Updatable() bool { return b.updatable }
func (b *DictBuffer) Bytes() []byte   { return b.data }

// Slice returns a bounded view of the region.
func (b *DictBuffer) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return nil, errTruncated
	}
	return b.data[off : off+n], nil
}

func (b *DictBuffer) reader(off int) (*byteReader, error) {
	if off < 0 || off > len(b.data) {
		return nil, errTruncated
	}
	return newByteReader(b.data[off:]), nil
}

// Append extends the updatable region.
func (b *DictBuffer) Append(p []byte) error {
	if !b.updatable {
		return errors.New("dict: append to read-only buffer")
	}
	b.data = append(b.data, p...)
	return nil
}

func (b *DictBuffer) Close() error {
	b.data = nil
	if b.mapped != nil {
		m := b.mapped
		b.mapped = nil
		return m.Close()
	}
	return nil
}

// MappedFile is a read-only memory mapping of a dictionary file.
type MappedFile struct {
	file *os.File
	data []byte
}

func OpenMappedFile(path string) (m *MappedFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return
	}
	if stat.Size() == 0 {
		f.Close()
		return nil, errors.New("dict: empty file")
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return
	}
	m = &MappedFile{f, data}
	return
}

// Buffer wraps the mapping as a read-only dictionary region.
func (m *MappedFile) Buffer() *DictBuffer {
	return &DictBuffer{data: m.data, mapped: m}
}

func (m *MappedFile) Close() error {
	err1 := syscall.Munmap(m.data)
	err2 := m.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
