// Package formats provides the binary encodings used by tileforge saves.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// TMAP format errors.
var (
	ErrInvalidTMAPMagic       = errors.New("invalid TMAP magic: expected 'TMAP'")
	ErrUnsupportedTMAPVersion = errors.New("unsupported TMAP version")
	ErrTruncatedTMAPData      = errors.New("truncated TMAP data")
)

const (
	tmapMagic      = "TMAP"
	tmapHeaderSize = 4 + 2 + 4*4 + 8
)

// TMAPVersion represents the TMAP file version.
type TMAPVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v TMAPVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentTMAPVersion is the version written by EncodeTMAP.
var CurrentTMAPVersion = TMAPVersion{Major: 1, Minor: 0}

// TMAPHeader is the fixed-size header of a TMAP blob.
type TMAPHeader struct {
	Version TMAPVersion
	Layers  uint32
	Height  uint32
	Width   uint32
	Active  uint32
	Scale   float64
}

// EncodeTMAP serializes every layer of a grid.
//
// Layout (little endian): "TMAP", minor, major, layers, height, width,
// active (uint32 each), scale (float64), then layers*height*width int32
// cells in layer, row, column order.
func EncodeTMAP(g *tilemap.Grid) ([]byte, error) {
	if g == nil {
		return nil, errors.New("encoding nil grid")
	}
	// Same limits as ParseTMAPHeader.
	if g.Height() > tilemap.MaxSide || g.Width() > tilemap.MaxSide {
		return nil, fmt.Errorf("%w: %dx%d", tilemap.ErrInvalidSize, g.Height(), g.Width())
	}
	if g.LayerCount() > tilemap.MaxLayers {
		return nil, fmt.Errorf("%w: %d layers", tilemap.ErrLayerLimit, g.LayerCount())
	}
	cellCount := g.LayerCount() * g.Height() * g.Width()
	buf := bytes.NewBuffer(make([]byte, 0, tmapHeaderSize+cellCount*4))

	buf.WriteString(tmapMagic)
	// Version is stored as [minor, major]
	buf.WriteByte(CurrentTMAPVersion.Minor)
	buf.WriteByte(CurrentTMAPVersion.Major)

	header := []uint32{
		uint32(g.LayerCount()),
		uint32(g.Height()),
		uint32(g.Width()),
		uint32(g.Active()),
	}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, g.Scale()); err != nil {
		return nil, fmt.Errorf("writing scale: %w", err)
	}

	var cell [4]byte
	for layer := 0; layer < g.LayerCount(); layer++ {
		cells, err := g.Layer(layer)
		if err != nil {
			return nil, err
		}
		for i, id := range cells {
			if id < math.MinInt32 || id > math.MaxInt32 {
				return nil, fmt.Errorf("layer %d cell %d: tile id %d does not fit int32", layer, i, id)
			}
			binary.LittleEndian.PutUint32(cell[:], uint32(int32(id)))
			buf.Write(cell[:])
		}
	}

	return buf.Bytes(), nil
}

// ParseTMAPHeader parses only the header of a TMAP blob.
func ParseTMAPHeader(data []byte) (TMAPHeader, error) {
	if len(data) < tmapHeaderSize {
		return TMAPHeader{}, ErrTruncatedTMAPData
	}

	if string(data[0:4]) != tmapMagic {
		return TMAPHeader{}, ErrInvalidTMAPMagic
	}

	h := TMAPHeader{
		Version: TMAPVersion{Major: data[5], Minor: data[4]},
	}
	if h.Version.Major != CurrentTMAPVersion.Major {
		return TMAPHeader{}, fmt.Errorf("%w: %s", ErrUnsupportedTMAPVersion, h.Version)
	}

	r := bytes.NewReader(data[6:])
	for _, field := range []*uint32{&h.Layers, &h.Height, &h.Width, &h.Active} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return TMAPHeader{}, fmt.Errorf("%w: reading header", ErrTruncatedTMAPData)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Scale); err != nil {
		return TMAPHeader{}, fmt.Errorf("%w: reading scale", ErrTruncatedTMAPData)
	}

	if h.Width == 0 || h.Height == 0 || h.Width > tilemap.MaxSide || h.Height > tilemap.MaxSide {
		return TMAPHeader{}, fmt.Errorf("invalid TMAP dimensions: %dx%d", h.Height, h.Width)
	}
	if h.Layers == 0 || h.Layers > tilemap.MaxLayers {
		return TMAPHeader{}, fmt.Errorf("invalid TMAP layer count: %d", h.Layers)
	}
	if h.Active >= h.Layers {
		return TMAPHeader{}, fmt.Errorf("invalid TMAP active layer %d of %d", h.Active, h.Layers)
	}

	return h, nil
}

// ParseTMAP parses a TMAP blob into a grid.
func ParseTMAP(data []byte) (*tilemap.Grid, error) {
	h, err := ParseTMAPHeader(data)
	if err != nil {
		return nil, err
	}

	perLayer := int(h.Height) * int(h.Width)
	body := data[tmapHeaderSize:]
	if len(body) < int(h.Layers)*perLayer*4 {
		return nil, fmt.Errorf("%w: expected %d cells, have %d bytes", ErrTruncatedTMAPData, int(h.Layers)*perLayer, len(body))
	}

	layers := make([][]int, h.Layers)
	for l := range layers {
		cells := make([]int, perLayer)
		for i := range cells {
			off := (l*perLayer + i) * 4
			cells[i] = int(int32(binary.LittleEndian.Uint32(body[off:])))
		}
		layers[l] = cells
	}

	g, err := tilemap.FromLayers(int(h.Height), int(h.Width), layers, int(h.Active), h.Scale)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}
	return g, nil
}

// ParseTMAPFile parses a TMAP file from disk.
func ParseTMAPFile(path string) (*tilemap.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading TMAP file: %w", err)
	}
	return ParseTMAP(data)
}

// WriteTMAPFile encodes a grid and writes it to disk.
func WriteTMAPFile(path string, g *tilemap.Grid) error {
	data, err := EncodeTMAP(g)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
