package gotiffcore

// Layout distinguishes strip-organized images from tile-organized ones
// (spec.md invariant iii: exactly one of {strip, tile} layout per image).
type Layout int

const (
	LayoutStrip Layout = iota
	LayoutTile
)

// ChunkGeometry computes the deterministic chunk_index -> region mapping
// spec.md §4.3 describes, for both strip and tile layouts and both
// planar configurations.
type ChunkGeometry struct {
	Layout Layout

	ImageWidth, ImageHeight int
	ChunkWidth, ChunkHeight int // RowsPerStrip x full width for strips; TileWidth x TileLength for tiles
	SamplesPerPixel         int
	Planar                  int // PlanarChunky or PlanarPlanar

	chunksAcross, chunksDown, planes int
}

// NewStripGeometry builds the geometry for a strip-organized image.
// rowsPerStrip must be > 0.
func NewStripGeometry(width, height, rowsPerStrip, samplesPerPixel, planar int) (*ChunkGeometry, error) {
	if width <= 0 || height <= 0 {
		return nil, usageErrorf("zero-sized image (%dx%d)", width, height)
	}
	if rowsPerStrip <= 0 {
		return nil, usageErrorf("inconsistent RowsPerStrip: %d", rowsPerStrip)
	}
	g := &ChunkGeometry{
		Layout:          LayoutStrip,
		ImageWidth:       width,
		ImageHeight:      height,
		ChunkWidth:       width,
		ChunkHeight:      rowsPerStrip,
		SamplesPerPixel:  samplesPerPixel,
		Planar:           planar,
		chunksAcross:     1,
	}
	g.chunksDown = ceilDiv(height, rowsPerStrip)
	g.planes = 1
	if planar == PlanarPlanar {
		g.planes = samplesPerPixel
	}
	return g, nil
}

// NewTileGeometry builds the geometry for a tile-organized image.
// TileWidth and TileLength must each be a multiple of 16 per the TIFF
// spec; this package does not enforce that baseline requirement beyond
// rejecting non-positive values, matching the teacher's permissive
// stance on non-fatal baseline violations.
func NewTileGeometry(width, height, tileWidth, tileLength, samplesPerPixel, planar int) (*ChunkGeometry, error) {
	if width <= 0 || height <= 0 {
		return nil, usageErrorf("zero-sized image (%dx%d)", width, height)
	}
	if tileWidth <= 0 || tileLength <= 0 {
		return nil, usageErrorf("invalid tile dimensions %dx%d", tileWidth, tileLength)
	}
	g := &ChunkGeometry{
		Layout:          LayoutTile,
		ImageWidth:       width,
		ImageHeight:      height,
		ChunkWidth:       tileWidth,
		ChunkHeight:      tileLength,
		SamplesPerPixel:  samplesPerPixel,
		Planar:           planar,
	}
	g.chunksAcross = ceilDiv(width, tileWidth)
	g.chunksDown = ceilDiv(height, tileLength)
	g.planes = 1
	if planar == PlanarPlanar {
		g.planes = samplesPerPixel
	}
	return g, nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// ChunksPerPlane returns the number of chunks covering one sample plane.
func (g *ChunkGeometry) ChunksPerPlane() int { return g.chunksAcross * g.chunksDown }

// ChunkCount returns the total number of chunks, per spec.md invariant
// (iv): ceil(H/RowsPerStrip)*(SPP if planar) for strips,
// ceil(W/TW)*ceil(H/TL)*(SPP if planar) for tiles.
func (g *ChunkGeometry) ChunkCount() int { return g.ChunksPerPlane() * g.planes }

// ChunkRegion describes one chunk's placement: its full (possibly
// padded) extent and, separately, the unpadded region actually backed
// by image pixels.
type ChunkRegion struct {
	X0, Y0   int // top-left, in image pixel coordinates
	W, H     int // full chunk extent (may run past the image edge for tiles)
	DataW, DataH int // unpadded extent actually covered by image pixels
	Plane    int // sample-plane index when Planar == PlanarPlanar, else 0
}

// Chunk returns the full (padded) and data (trimmed) geometry of chunk
// idx. Tiles at the right/bottom edge report DataW/DataH smaller than
// W/H; strips are never padded horizontally and their final strip per
// plane may simply be shorter (DataH < H).
func (g *ChunkGeometry) Chunk(idx int) (ChunkRegion, error) {
	if idx < 0 || idx >= g.ChunkCount() {
		return ChunkRegion{}, formatErrorf(ReasonInvalidChunkCount, "chunk index %d out of range [0,%d)", idx, g.ChunkCount())
	}

	perPlane := g.ChunksPerPlane()
	plane := idx / perPlane
	local := idx % perPlane
	col := local % g.chunksAcross
	row := local / g.chunksAcross

	x0 := col * g.ChunkWidth
	y0 := row * g.ChunkHeight

	dataW := g.ChunkWidth
	if x0+dataW > g.ImageWidth {
		dataW = g.ImageWidth - x0
	}
	dataH := g.ChunkHeight
	if y0+dataH > g.ImageHeight {
		dataH = g.ImageHeight - y0
	}

	return ChunkRegion{
		X0: x0, Y0: y0,
		W: g.ChunkWidth, H: g.ChunkHeight,
		DataW: dataW, DataH: dataH,
		Plane: plane,
	}, nil
}
