package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"html"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/tiff"
	"github.com/huangsam/geoseries/core/raster"
	"golang.org/x/image/tiff/lzw"
)

// Extra tags only the decoder looks at.
const (
	tagTileWidth      = 322
	tagTileLength     = 323
	tagTileOffsets    = 324
	tagTileByteCounts = 325
)

const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946

	predictorNone       = 1
	predictorHorizontal = 2

	sampleFormatUint      = 1
	sampleFormatInt       = 2
	sampleFormatIEEEFloat = 3

	planarChunky   = 1
	planarSeparate = 2

	rasterPixelIsPoint = 2

	maxDecodedCells = 1 << 28
)

var descriptionRe = regexp.MustCompile(`<Item name="DESCRIPTION" sample="(\d+)" role="description">([^<]*)</Item>`)

// Header is the georeferencing and band layout of a file, read without
// touching pixel data.
type Header struct {
	Grid      raster.Grid
	Bands     []string
	Time      time.Time
	NoData    float64
	HasNoData bool
}

type field struct {
	typ   uint16
	size  int // bytes per value
	count uint32
	raw   []byte
}

type decoder struct {
	data   []byte
	bo     binary.ByteOrder
	fields map[uint16]field
}

// ReadFile decodes the GeoTIFF at path into a slice of dataset.
func ReadFile(path, dataset string) (*raster.Slice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data, dataset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadHeaderFile reads only the header of the GeoTIFF at path.
func ReadHeaderFile(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	d, err := newDecoder(data)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return d.header()
}

// Decode reads the first image of a GeoTIFF. Cells equal to the GDAL nodata
// value become masked.
func Decode(data []byte, dataset string) (*raster.Slice, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}
	h, err := d.header()
	if err != nil {
		return nil, err
	}
	bands, err := d.pixels(h)
	if err != nil {
		return nil, err
	}
	s := raster.New(dataset, h.Time, h.Grid)
	for i, name := range h.Bands {
		if s, err = s.WithBand(name, bands[i]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// newDecoder parses the first IFD. Tag values are read through the TIFF
// parser; pixel data stays in data and is decoded by pixels.
func newDecoder(data []byte) (*decoder, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("not a TIFF: %d bytes", len(data))
	}
	d := &decoder{data: data, fields: map[uint16]field{}}
	switch string(data[:2]) {
	case "II":
		d.bo = binary.LittleEndian
	case "MM":
		d.bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF: bad byte order %q", data[:2])
	}
	t, err := tiff.Parse(bytes.NewReader(data), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TIFF: %w", err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, fmt.Errorf("TIFF has no image directory")
	}
	for _, f := range ifds[0].Fields() {
		size, count := int(f.Type().Size()), uint32(f.Count())
		raw := f.Value().Bytes()
		if n := size * int(count); n < len(raw) {
			raw = raw[:n]
		} else if n > len(raw) {
			return nil, fmt.Errorf("tag %d value is truncated", f.Tag().ID())
		}
		d.fields[f.Tag().ID()] = field{typ: f.Type().ID(), size: size, count: count, raw: raw}
	}
	return d, nil
}

func (d *decoder) has(tag uint16) bool {
	_, ok := d.fields[tag]
	return ok
}

// ints returns integer tag values.
func (d *decoder) ints(tag uint16) []int {
	f, ok := d.fields[tag]
	if !ok {
		return nil
	}
	out := make([]int, 0, f.count)
	for i := 0; i < int(f.count); i++ {
		v := f.raw[f.size*i:]
		switch f.size {
		case 1:
			out = append(out, int(v[0]))
		case 2:
			out = append(out, int(d.bo.Uint16(v)))
		case 4:
			out = append(out, int(d.bo.Uint32(v)))
		}
	}
	return out
}

func (d *decoder) first(tag uint16, def int) int {
	if v := d.ints(tag); len(v) > 0 {
		return v[0]
	}
	return def
}

func (d *decoder) doubles(tag uint16) []float64 {
	f, ok := d.fields[tag]
	if !ok || f.typ != typeDouble {
		return nil
	}
	out := make([]float64, f.count)
	for i := range out {
		out[i] = math.Float64frombits(d.bo.Uint64(f.raw[8*i:]))
	}
	return out
}

func (d *decoder) ascii(tag uint16) string {
	f, ok := d.fields[tag]
	if !ok {
		return ""
	}
	return strings.TrimRight(string(f.raw), "\x00")
}

func (d *decoder) header() (Header, error) {
	var h Header
	w, ht := d.first(tagImageWidth, 0), d.first(tagImageLength, 0)
	if w <= 0 || ht <= 0 {
		return h, fmt.Errorf("missing image dimensions")
	}
	if w*ht > maxDecodedCells {
		return h, fmt.Errorf("image of %dx%d cells is too large", w, ht)
	}
	scale := d.doubles(tagModelPixelScale)
	tie := d.doubles(tagModelTiepoint)
	if len(scale) < 2 || len(tie) < 6 {
		return h, fmt.Errorf("missing georeferencing tags")
	}
	crs, pointRaster, err := d.crs()
	if err != nil {
		return h, err
	}
	gt := raster.GeoTransform{
		OriginX:     tie[3] - tie[0]*scale[0],
		OriginY:     tie[4] + tie[1]*scale[1],
		PixelWidth:  scale[0],
		PixelHeight: scale[1],
	}
	if pointRaster {
		gt.OriginX -= scale[0] / 2
		gt.OriginY += scale[1] / 2
	}
	h.Grid = raster.Grid{Width: w, Height: ht, Transform: gt, CRS: crs}

	nb := d.first(tagSamplesPerPixel, 1)
	h.Bands = make([]string, nb)
	for i := range h.Bands {
		h.Bands[i] = "b" + strconv.Itoa(i+1)
	}
	for _, m := range descriptionRe.FindAllStringSubmatch(d.ascii(tagGDALMetadata), -1) {
		i, err := strconv.Atoi(m[1])
		if err == nil && i >= 0 && i < nb && m[2] != "" {
			h.Bands[i] = html.UnescapeString(m[2])
		}
	}

	h.NoData = math.NaN()
	if nd := strings.TrimSpace(d.ascii(tagGDALNoData)); nd != "" {
		v, err := strconv.ParseFloat(nd, 64)
		if err != nil {
			return h, fmt.Errorf("bad nodata value %q", nd)
		}
		h.NoData, h.HasNoData = v, true
	}
	if dt := d.ascii(tagDateTime); dt != "" {
		if t, err := time.Parse(dateTimeLayout, dt); err == nil {
			h.Time = t
		}
	}
	return h, nil
}

// crs reads the EPSG code from the GeoKey directory.
func (d *decoder) crs() (string, bool, error) {
	keys := d.ints(tagGeoKeyDirectory)
	if len(keys) < 4 {
		return "", false, fmt.Errorf("missing GeoKey directory")
	}
	var code, model, rasterType int
	for i := 4; i+3 < len(keys) && i < 4+4*keys[3]; i += 4 {
		if keys[i+1] != 0 {
			continue // value stored in another tag
		}
		switch keys[i] {
		case keyModelType:
			model = keys[i+3]
		case keyRasterType:
			rasterType = keys[i+3]
		case keyGeographicType:
			if model != modelProjected && code == 0 {
				code = keys[i+3]
			}
		case keyProjectedType:
			code = keys[i+3]
		}
	}
	if code == 0 || code == 32767 {
		return "", false, fmt.Errorf("GeoTIFF has no EPSG code")
	}
	return "EPSG:" + strconv.Itoa(code), rasterType == rasterPixelIsPoint, nil
}

// pixels decodes every band into a float64 array.
func (d *decoder) pixels(h Header) ([][]float64, error) {
	w, ht, nb := h.Grid.Width, h.Grid.Height, len(h.Bands)

	bps := d.ints(tagBitsPerSample)
	bits := 1
	if len(bps) > 0 {
		bits = bps[0]
	}
	format := d.first(tagSampleFormat, sampleFormatUint)
	read, err := sampleReader(d.bo, bits, format)
	if err != nil {
		return nil, err
	}
	size := bits / 8
	compression := d.first(tagCompression, compressionNone)
	predictor := d.first(tagPredictor, predictorNone)
	if predictor != predictorNone && !(predictor == predictorHorizontal && format != sampleFormatIEEEFloat) {
		return nil, fmt.Errorf("unsupported predictor %d for sample format %d", predictor, format)
	}
	planar := d.first(tagPlanarConfiguration, planarChunky)

	var chunkW, chunkH int
	var offsets, counts []int
	if d.has(tagTileWidth) {
		chunkW, chunkH = d.first(tagTileWidth, 0), d.first(tagTileLength, 0)
		offsets, counts = d.ints(tagTileOffsets), d.ints(tagTileByteCounts)
	} else {
		chunkW, chunkH = w, min(d.first(tagRowsPerStrip, ht), ht)
		offsets, counts = d.ints(tagStripOffsets), d.ints(tagStripByteCounts)
	}
	if chunkW <= 0 || chunkH <= 0 || len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, fmt.Errorf("bad strip or tile layout")
	}
	across := (w + chunkW - 1) / chunkW
	down := (ht + chunkH - 1) / chunkH
	spc := nb
	if planar == planarSeparate {
		spc = 1
	}
	want := across * down
	if planar == planarSeparate {
		want *= nb
	}
	if len(offsets) < want {
		return nil, fmt.Errorf("have %d chunks, need %d", len(offsets), want)
	}

	out := make([][]float64, nb)
	for i := range out {
		out[i] = make([]float64, w*ht)
	}
	for ci := 0; ci < want; ci++ {
		band0, idx := 0, ci
		if planar == planarSeparate {
			band0, idx = ci/(across*down), ci%(across*down)
		}
		off, n := offsets[ci], counts[ci]
		if off < 0 || off+n > len(d.data) {
			return nil, fmt.Errorf("chunk %d out of range", ci)
		}
		buf, err := decompress(d.data[off:off+n], compression)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", ci, err)
		}
		if predictor == predictorHorizontal {
			undoHorizontal(buf, d.bo, size, chunkW, spc)
		}
		cx, cy := idx%across, idx/across
		for r := 0; r < chunkH; r++ {
			y := cy*chunkH + r
			if y >= ht {
				break
			}
			for c := 0; c < chunkW; c++ {
				x := cx*chunkW + c
				if x >= w {
					break
				}
				for s := 0; s < spc; s++ {
					pos := ((r*chunkW+c)*spc + s) * size
					if pos+size > len(buf) {
						return nil, fmt.Errorf("chunk %d is truncated", ci)
					}
					v := read(buf[pos:])
					if h.HasNoData && (v == h.NoData || float64(float32(v)) == float64(float32(h.NoData))) {
						v = raster.Masked()
					}
					out[band0+s][y*w+x] = v
				}
			}
		}
	}
	return out, nil
}

func decompress(raw []byte, compression int) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch compression {
	case compressionNone:
		return raw, nil
	case compressionDeflate, compressionDeflateOld:
		if r, err = zlib.NewReader(bytes.NewReader(raw)); err != nil {
			return nil, err
		}
	case compressionLZW:
		r = lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
	default:
		return nil, fmt.Errorf("unsupported compression %d", compression)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func sampleReader(bo binary.ByteOrder, bits, format int) (func([]byte) float64, error) {
	switch {
	case format == sampleFormatIEEEFloat && bits == 32:
		return func(b []byte) float64 { return float64(math.Float32frombits(bo.Uint32(b))) }, nil
	case format == sampleFormatIEEEFloat && bits == 64:
		return func(b []byte) float64 { return math.Float64frombits(bo.Uint64(b)) }, nil
	case format == sampleFormatUint && bits == 8:
		return func(b []byte) float64 { return float64(b[0]) }, nil
	case format == sampleFormatUint && bits == 16:
		return func(b []byte) float64 { return float64(bo.Uint16(b)) }, nil
	case format == sampleFormatUint && bits == 32:
		return func(b []byte) float64 { return float64(bo.Uint32(b)) }, nil
	case format == sampleFormatInt && bits == 8:
		return func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case format == sampleFormatInt && bits == 16:
		return func(b []byte) float64 { return float64(int16(bo.Uint16(b))) }, nil
	case format == sampleFormatInt && bits == 32:
		return func(b []byte) float64 { return float64(int32(bo.Uint32(b))) }, nil
	}
	return nil, fmt.Errorf("unsupported sample format %d with %d bits", format, bits)
}

// undoHorizontal reverses TIFF predictor 2 on integer samples in place.
func undoHorizontal(buf []byte, bo binary.ByteOrder, size, width, spc int) {
	row := width * spc * size
	for start := 0; start+row <= len(buf); start += row {
		r := buf[start : start+row]
		for i := spc * size; i < len(r); i += size {
			prev := i - spc*size
			switch size {
			case 1:
				r[i] += r[prev]
			case 2:
				bo.PutUint16(r[i:], bo.Uint16(r[i:])+bo.Uint16(r[prev:]))
			case 4:
				bo.PutUint32(r[i:], bo.Uint32(r[i:])+bo.Uint32(r[prev:]))
			}
		}
	}
}
