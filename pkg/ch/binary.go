package ch

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/klauspost/compress/gzip"

	"route_engine/pkg/graph"
)

const (
	hierarchyMagic   = "RTEHIER\x00"
	hierarchyVersion = uint32(1)
	maxShortcuts     = 200_000_000
)

type hierarchyHeader struct {
	Magic        [8]byte
	Version      uint32
	NumNodes     uint32
	NumShortcuts uint32
	CoreSize     uint32
}

// Save persists the hierarchy: ranks, the shortcut table and the core
// size. The augmented adjacency is not stored; Load rebuilds it from the
// store plus the table, which reproduces the exact arc layout Contract
// produced.
func (h *Hierarchy) Save(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	zw := gzip.NewWriter(f)
	cw := &crcWriter{w: zw, hash: crc32.NewIEEE()}

	hdr := hierarchyHeader{
		Version:      hierarchyVersion,
		NumNodes:     uint32(h.NodeCount()),
		NumShortcuts: uint32(len(h.Shortcuts)),
		CoreSize:     uint32(h.CoreSize),
	}
	copy(hdr.Magic[:], hierarchyMagic)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := writeU32(cw, h.Order.Rank); err != nil {
		return fmt.Errorf("write Rank: %w", err)
	}

	n := len(h.Shortcuts)
	from := make([]uint32, n)
	to := make([]uint32, n)
	via := make([]uint32, n)
	first := make([]uint32, n)
	last := make([]uint32, n)
	cost := make([]float64, n)
	for i, sc := range h.Shortcuts {
		from[i], to[i], via[i] = uint32(sc.From), uint32(sc.To), uint32(sc.Via)
		first[i], last[i] = uint32(sc.FirstEdge), uint32(sc.LastEdge)
		cost[i] = sc.Cost
	}
	for _, col := range [][]uint32{from, to, via, first, last} {
		if err := writeU32(cw, col); err != nil {
			return fmt.Errorf("write shortcut table: %w", err)
		}
	}
	if err := writeF64(cw, cost); err != nil {
		return fmt.Errorf("write shortcut costs: %w", err)
	}

	if err := binary.Write(zw, binary.LittleEndian, cw.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load reads a hierarchy written by Save and re-derives the augmented
// adjacency from the given store. The store must be the one the hierarchy
// was built from.
func Load(path string, s *graph.Store) (*Hierarchy, error) {
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

	cr := &crcReader{r: zr, hash: crc32.NewIEEE()}

	var hdr hierarchyHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != hierarchyMagic {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != hierarchyVersion {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if int(hdr.NumNodes) != s.NodeCount() {
		return nil, fmt.Errorf("hierarchy covers %d nodes, store has %d", hdr.NumNodes, s.NodeCount())
	}
	if hdr.NumShortcuts > maxShortcuts {
		return nil, fmt.Errorf("NumShortcuts %d exceeds limit %d", hdr.NumShortcuts, maxShortcuts)
	}
	if hdr.CoreSize > hdr.NumNodes {
		return nil, fmt.Errorf("CoreSize %d exceeds node count %d", hdr.CoreSize, hdr.NumNodes)
	}

	rank, err := readU32(cr, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read Rank: %w", err)
	}

	nsc := int(hdr.NumShortcuts)
	cols := make([][]uint32, 5)
	for i := range cols {
		if cols[i], err = readU32(cr, nsc); err != nil {
			return nil, fmt.Errorf("read shortcut table: %w", err)
		}
	}
	cost, err := readF64(cr, nsc)
	if err != nil {
		return nil, fmt.Errorf("read shortcut costs: %w", err)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(zr, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	byRank := make([]graph.NodeID, hdr.NumNodes)
	for node, r := range rank {
		if r >= hdr.NumNodes {
			return nil, fmt.Errorf("%w: rank %d out of range", ErrBadOrder, r)
		}
		byRank[r] = graph.NodeID(node)
	}
	order, err := NewNodeOrder(byRank)
	if err != nil {
		return nil, err
	}

	h := &Hierarchy{
		Order:     order,
		Shortcuts: make([]Shortcut, nsc),
		CoreSize:  int(hdr.CoreSize),
	}
	h.Fwd, h.Bwd = buildArcs(s)
	numEdges := uint32(s.EdgeCount())

	for i := 0; i < nsc; i++ {
		sc := Shortcut{
			From:      graph.NodeID(cols[0][i]),
			To:        graph.NodeID(cols[1][i]),
			Via:       graph.NodeID(cols[2][i]),
			FirstEdge: graph.EdgeID(cols[3][i]),
			LastEdge:  graph.EdgeID(cols[4][i]),
			Cost:      cost[i],
		}
		if uint32(sc.From) >= hdr.NumNodes || uint32(sc.To) >= hdr.NumNodes || uint32(sc.Via) >= hdr.NumNodes {
			return nil, fmt.Errorf("shortcut %d references node out of range", i)
		}
		if uint32(sc.FirstEdge) >= numEdges || uint32(sc.LastEdge) >= numEdges {
			return nil, fmt.Errorf("shortcut %d: %w", i, graph.ErrEdgeNotFound)
		}
		h.Shortcuts[i] = sc
		h.Fwd[sc.From] = append(h.Fwd[sc.From], Arc{
			Head: sc.To, Cost: sc.Cost, Shortcut: int32(i),
			FirstEdge: sc.FirstEdge, LastEdge: sc.LastEdge,
		})
		h.Bwd[sc.To] = append(h.Bwd[sc.To], Arc{
			Head: sc.From, Cost: sc.Cost, Shortcut: int32(i),
			FirstEdge: sc.FirstEdge, LastEdge: sc.LastEdge,
		})
	}

	return h, nil
}

// Zero-copy section I/O, same layout as the graph codec.

func writeU32(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeF64(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readU32(r io.Reader, n int) ([]uint32, error) {
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

func readF64(r io.Reader, n int) ([]float64, error) {
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

type crcWriter struct {
	w    io.Writer
	hash interface {
		Write([]byte) (int, error)
		Sum32() uint32
	}
}

func (cw *crcWriter) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crcReader struct {
	r    io.Reader
	hash interface {
		Write([]byte) (int, error)
		Sum32() uint32
	}
}

func (cr *crcReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
