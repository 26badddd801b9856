// Package archive provides a named, keyed container of compressed blobs
// stored in a single file.
package archive

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Faultbox/tileforge/pkg/encoding"
)

const (
	archiveMagic   = "Tileforge Saves"
	archiveVersion = 0x100
	headerSize     = 32

	// entry table record after the name: compressed, aligned, uncompressed,
	// flags, offset
	entryRecordSize = 17

	flagFile = 0x01
)

// Archive errors.
var (
	ErrNotFound     = errors.New("entry not found")
	ErrInvalidName  = errors.New("invalid entry name")
	ErrInvalidMagic = errors.New("invalid archive magic")
	ErrCorrupt      = errors.New("corrupt archive")
)

// Header contains archive file header information.
type Header struct {
	Magic       [16]byte
	Version     uint32
	TableOffset uint32
	EntryCount  uint32
	Reserved    uint32
}

// Entry represents a blob stored in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened save archive. Writes are buffered in memory until
// Flush rewrites the file. An Archive is not safe for concurrent use.
type Archive struct {
	path    string
	file    *os.File
	header  Header
	entries map[string]*Entry
	pending map[string][]byte
	dirty   bool
}

// Open opens an existing archive for reading and writing.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	a := &Archive{
		path:    path,
		file:    file,
		entries: make(map[string]*Entry),
		pending: make(map[string][]byte),
	}

	if err := a.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if err := a.readEntryTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading entry table: %w", err)
	}

	return a, nil
}

// Create starts a new empty archive at path. Nothing is written until Flush.
func Create(path string) *Archive {
	return &Archive{
		path:    path,
		entries: make(map[string]*Entry),
		pending: make(map[string][]byte),
		dirty:   true,
	}
}

// OpenOrCreate opens the archive at path, or starts a new one if the file
// does not exist yet.
func OpenOrCreate(path string) (*Archive, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Create(path), nil
	}
	return Open(path)
}

// Path returns the archive file path.
func (a *Archive) Path() string { return a.path }

// Close closes the archive without flushing pending writes.
func (a *Archive) Close() error {
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		return err
	}
	return nil
}

func (a *Archive) readHeader() error {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := binary.Read(a.file, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if string(encoding.TrimNullBytes(a.header.Magic[:])) != archiveMagic {
		return ErrInvalidMagic
	}

	if a.header.Version != archiveVersion {
		return fmt.Errorf("unsupported archive version: 0x%x", a.header.Version)
	}

	return nil
}

func (a *Archive) readEntryTable() error {
	if a.header.EntryCount == 0 {
		return nil
	}

	if _, err := a.file.Seek(int64(a.header.TableOffset)+headerSize, io.SeekStart); err != nil {
		return err
	}

	var compressedSize, uncompressedSize uint32
	if err := binary.Read(a.file, binary.LittleEndian, &compressedSize); err != nil {
		return fmt.Errorf("%w: table size: %v", ErrCorrupt, err)
	}
	if err := binary.Read(a.file, binary.LittleEndian, &uncompressedSize); err != nil {
		return fmt.Errorf("%w: table size: %v", ErrCorrupt, err)
	}

	compressedData := make([]byte, compressedSize)
	if _, err := io.ReadFull(a.file, compressedData); err != nil {
		return fmt.Errorf("%w: table data: %v", ErrCorrupt, err)
	}

	tableData, err := inflate(compressedData, uncompressedSize)
	if err != nil {
		return fmt.Errorf("%w: table data: %v", ErrCorrupt, err)
	}

	offset := 0
	for i := uint32(0); i < a.header.EntryCount; i++ {
		name, n, ok := encoding.CString(tableData[offset:])
		if !ok {
			return fmt.Errorf("%w: entry %d name", ErrCorrupt, i)
		}
		offset += n

		if offset+entryRecordSize > len(tableData) {
			return fmt.Errorf("%w: entry %d record", ErrCorrupt, i)
		}

		entry := &Entry{
			Name:             encoding.NormalizeName(name),
			CompressedSize:   binary.LittleEndian.Uint32(tableData[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(tableData[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(tableData[offset+8:]),
			Flags:            tableData[offset+12],
			Offset:           binary.LittleEndian.Uint32(tableData[offset+13:]),
		}
		offset += entryRecordSize

		if entry.Flags&flagFile != 0 {
			a.entries[entry.Name] = entry
		}
	}

	return nil
}

// List returns all entry names in sorted order.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries)+len(a.pending))
	for name := range a.entries {
		result = append(result, name)
	}
	for name := range a.pending {
		if _, ok := a.entries[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.List())
}

// Contains checks if an entry exists.
func (a *Archive) Contains(name string) bool {
	key := encoding.NormalizeName(name)
	if _, ok := a.pending[key]; ok {
		return true
	}
	_, ok := a.entries[key]
	return ok
}

// Put stores data under name, replacing any previous entry.
func (a *Archive) Put(name string, data []byte) error {
	if !encoding.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	a.pending[encoding.NormalizeName(name)] = append([]byte(nil), data...)
	a.dirty = true
	return nil
}

// Delete removes an entry.
func (a *Archive) Delete(name string) error {
	key := encoding.NormalizeName(name)
	_, inPending := a.pending[key]
	_, inEntries := a.entries[key]
	if !inPending && !inEntries {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(a.pending, key)
	delete(a.entries, key)
	a.dirty = true
	return nil
}

// Read returns the uncompressed content of an entry.
func (a *Archive) Read(name string) ([]byte, error) {
	key := encoding.NormalizeName(name)
	if data, ok := a.pending[key]; ok {
		return append([]byte(nil), data...), nil
	}

	entry, ok := a.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	raw, err := a.readRaw(entry)
	if err != nil {
		return nil, err
	}
	data, err := inflate(raw, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %v", ErrCorrupt, name, err)
	}
	return data, nil
}

func (a *Archive) readRaw(entry *Entry) ([]byte, error) {
	if a.file == nil {
		return nil, fmt.Errorf("%w: archive not open", ErrCorrupt)
	}
	if _, err := a.file.Seek(int64(entry.Offset)+headerSize, io.SeekStart); err != nil {
		return nil, err
	}
	raw := make([]byte, entry.CompressedSize)
	if _, err := io.ReadFull(a.file, raw); err != nil {
		return nil, fmt.Errorf("%w: entry %s: %v", ErrCorrupt, entry.Name, err)
	}
	return raw, nil
}

// Flush writes all entries to disk. The new file is written next to the old
// one and renamed over it.
func (a *Archive) Flush() error {
	if !a.dirty {
		return nil
	}

	names := a.List()
	type blob struct {
		name         string
		compressed   []byte
		uncompressed uint32
	}
	blobs := make([]blob, 0, len(names))
	for _, name := range names {
		if data, ok := a.pending[name]; ok {
			compressed, err := deflate(data)
			if err != nil {
				return fmt.Errorf("compressing %s: %w", name, err)
			}
			blobs = append(blobs, blob{name, compressed, uint32(len(data))})
			continue
		}
		entry := a.entries[name]
		raw, err := a.readRaw(entry)
		if err != nil {
			return err
		}
		blobs = append(blobs, blob{name, raw, entry.UncompressedSize})
	}

	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmpPath := a.path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	entries := make(map[string]*Entry, len(blobs))
	var body bytes.Buffer
	for _, b := range blobs {
		// Align to 8 bytes
		aligned := uint32(len(b.compressed))
		if aligned%8 != 0 {
			aligned += 8 - aligned%8
		}
		entries[b.name] = &Entry{
			Name:             b.name,
			CompressedSize:   uint32(len(b.compressed)),
			AlignedSize:      aligned,
			UncompressedSize: b.uncompressed,
			Flags:            flagFile,
			Offset:           uint32(body.Len()),
		}
		body.Write(b.compressed)
		body.Write(make([]byte, aligned-uint32(len(b.compressed))))
	}

	var table bytes.Buffer
	for _, b := range blobs {
		e := entries[b.name]
		table.WriteString(e.Name)
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, e.CompressedSize)
		binary.Write(&table, binary.LittleEndian, e.AlignedSize)
		binary.Write(&table, binary.LittleEndian, e.UncompressedSize)
		table.WriteByte(e.Flags)
		binary.Write(&table, binary.LittleEndian, e.Offset)
	}
	compressedTable, err := deflate(table.Bytes())
	if err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("compressing entry table: %w", err)
	}

	header := Header{
		Version:     archiveVersion,
		TableOffset: uint32(body.Len()),
		EntryCount:  uint32(len(blobs)),
	}
	copy(header.Magic[:], encoding.FixedString(archiveMagic, len(header.Magic)))

	werr := binary.Write(out, binary.LittleEndian, header)
	if werr == nil {
		_, werr = out.Write(body.Bytes())
	}
	if werr == nil {
		werr = binary.Write(out, binary.LittleEndian, [2]uint32{uint32(len(compressedTable)), uint32(table.Len())})
	}
	if werr == nil {
		_, werr = out.Write(compressedTable)
	}
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing archive: %w", werr)
	}

	if a.file != nil {
		a.file.Close()
		a.file = nil
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		return fmt.Errorf("replacing archive: %w", err)
	}

	file, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("reopening archive: %w", err)
	}
	a.file = file
	a.header = header
	a.entries = entries
	a.pending = make(map[string][]byte)
	a.dirty = false
	return nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte, size uint32) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := make([]byte, size)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}
