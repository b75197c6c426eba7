package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"unsafe"

	"github.com/klauspost/compress/gzip"
)

const (
	storeMagic      = "RTEGRAPH"
	storeVersion    = uint32(1)
	maxNodes        = 10_000_000
	maxEdges        = 50_000_000
	maxRestrictions = 10_000_000
)

// storeHeader is the binary header inside the gzip stream.
type storeHeader struct {
	Magic           [8]byte
	Version         uint32
	NumNodes        uint32
	NumEdges        uint32
	NumRestrictions uint32
	CellSize        float64
}

// Save serializes the store to a gzip-compressed binary file. The payload
// carries a CRC32 trailer; the write goes through a temp file and an
// atomic rename.
func (s *Store) Save(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	zw := gzip.NewWriter(f)
	crcWriter := crc32Writer{w: zw, hash: crc32.NewIEEE()}
	w := &crcWriter

	cellSize := defaultCellSize
	if s.grid != nil {
		cellSize = s.grid.cellSize
	}

	hdr := storeHeader{
		Version:         storeVersion,
		NumNodes:        uint32(len(s.nodes)),
		NumEdges:        uint32(len(s.edges)),
		NumRestrictions: uint32(len(s.restrictions)),
		CellSize:        cellSize,
	}
	copy(hdr.Magic[:], storeMagic)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Node columns.
	lon := make([]float64, len(s.nodes))
	lat := make([]float64, len(s.nodes))
	elev := make([]float64, len(s.nodes))
	for i, nd := range s.nodes {
		lon[i], lat[i], elev[i] = nd.Lon, nd.Lat, nd.Elevation
	}
	if err := writeFloat64Slice(w, lon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}
	if err := writeFloat64Slice(w, lat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeFloat64Slice(w, elev); err != nil {
		return fmt.Errorf("write NodeElev: %w", err)
	}

	// Edge columns.
	from := make([]uint32, len(s.edges))
	to := make([]uint32, len(s.edges))
	weight := make([]float64, len(s.edges))
	dist := make([]float64, len(s.edges))
	bearing := make([]float64, len(s.edges))
	for i, e := range s.edges {
		from[i], to[i] = uint32(e.From), uint32(e.To)
		weight[i], dist[i], bearing[i] = e.Weight, e.Distance, e.Bearing
	}
	if err := writeUint32Slice(w, from); err != nil {
		return fmt.Errorf("write EdgeFrom: %w", err)
	}
	if err := writeUint32Slice(w, to); err != nil {
		return fmt.Errorf("write EdgeTo: %w", err)
	}
	if err := writeFloat64Slice(w, weight); err != nil {
		return fmt.Errorf("write EdgeWeight: %w", err)
	}
	if err := writeFloat64Slice(w, dist); err != nil {
		return fmt.Errorf("write EdgeDistance: %w", err)
	}
	if err := writeFloat64Slice(w, bearing); err != nil {
		return fmt.Errorf("write EdgeBearing: %w", err)
	}

	// Restrictions, sorted for a deterministic byte stream.
	trs := s.TurnRestrictions()
	sort.Slice(trs, func(i, j int) bool {
		if trs[i].FromEdge != trs[j].FromEdge {
			return trs[i].FromEdge < trs[j].FromEdge
		}
		if trs[i].Via != trs[j].Via {
			return trs[i].Via < trs[j].Via
		}
		return trs[i].ToEdge < trs[j].ToEdge
	})
	trCols := make([]uint32, 0, 3*len(trs))
	for _, tr := range trs {
		trCols = append(trCols, uint32(tr.FromEdge), uint32(tr.Via), uint32(tr.ToEdge))
	}
	if err := writeUint32Slice(w, trCols); err != nil {
		return fmt.Errorf("write restrictions: %w", err)
	}

	// CRC32 trailer over the uncompressed payload.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(zw, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Load deserializes a store written by Save. The result is rebuilt through
// the Builder, so adjacency and validation match a fresh build exactly.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	crcReader := crc32Reader{r: zr, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr storeHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != storeMagic {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != storeVersion {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}
	if hdr.NumRestrictions > maxRestrictions {
		return nil, fmt.Errorf("NumRestrictions %d exceeds limit %d", hdr.NumRestrictions, maxRestrictions)
	}

	lon, err := readFloat64Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}
	lat, err := readFloat64Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	elev, err := readFloat64Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read NodeElev: %w", err)
	}

	from, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeFrom: %w", err)
	}
	to, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeTo: %w", err)
	}
	weight, err := readFloat64Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeWeight: %w", err)
	}
	dist, err := readFloat64Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeDistance: %w", err)
	}
	bearing, err := readFloat64Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeBearing: %w", err)
	}

	trCols, err := readUint32Slice(r, int(hdr.NumRestrictions)*3)
	if err != nil {
		return nil, fmt.Errorf("read restrictions: %w", err)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(zr, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	b := NewBuilder().SetCellSize(hdr.CellSize)
	for i := 0; i < int(hdr.NumNodes); i++ {
		b.AddNode(lon[i], lat[i], elev[i])
	}
	for i := 0; i < int(hdr.NumEdges); i++ {
		if from[i] >= hdr.NumNodes || to[i] >= hdr.NumNodes {
			return nil, fmt.Errorf("%w: edge %d endpoints out of range", ErrStructure, i)
		}
		b.AddRoadEdge(NodeID(from[i]), NodeID(to[i]), weight[i], dist[i], bearing[i])
	}
	for i := 0; i < len(trCols); i += 3 {
		b.AddTurnRestriction(EdgeID(trCols[i]), NodeID(trCols[i+1]), EdgeID(trCols[i+2]))
	}

	return b.Build()
}

// Zero-copy section I/O using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
