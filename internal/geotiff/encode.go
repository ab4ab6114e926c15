// Package geotiff reads and writes single-image float GeoTIFFs.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"html"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/huangsam/geoseries/core/raster"
)

// TIFF field types.
const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

// Baseline and GeoTIFF tags.
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagPredictor                 = 317
	tagDateTime                  = 306
	tagSampleFormat              = 339

	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALMetadata    = 42112
	tagGDALNoData      = 42113
)

// GeoKeys.
const (
	keyModelType      = 1024
	keyRasterType     = 1025
	keyGeographicType = 2048
	keyProjectedType  = 3072

	modelProjected  = 1
	modelGeographic = 2
	rasterPixelArea = 1
)

const dateTimeLayout = "2006:01:02 15:04:05"

var enc = binary.LittleEndian

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

type byTag []ifdEntry

func (d byTag) Len() int           { return len(d) }
func (d byTag) Less(i, j int) bool { return d[i].tag < d[j].tag }
func (d byTag) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }

// Options tune what Encode writes besides the pixels.
type Options struct {
	NoData float64 // written to masked cells; NaN keeps them NaN
}

// DefaultOptions marks masked cells as NaN.
func DefaultOptions() Options {
	return Options{NoData: math.NaN()}
}

// Encode writes every band of s as an uncompressed, pixel-interleaved
// float32 GeoTIFF. Band names go into GDAL metadata so Decode can restore them.
func Encode(w io.Writer, s *raster.Slice, opts Options) error {
	g := s.Grid
	bands := s.Bands()
	if len(bands) == 0 {
		return fmt.Errorf("slice has no bands")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("empty grid %s", g)
	}
	geoKeys, err := geoKeyDirectory(g.CRS)
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}); err != nil {
		return err
	}

	nb := len(bands)
	pixels := make([]byte, 4*nb*g.Len())
	for i := 0; i < g.Len(); i++ {
		for b, band := range bands {
			v := band.Data[i]
			if raster.IsMasked(v) {
				v = opts.NoData
			}
			enc.PutUint32(pixels[4*(i*nb+b):], math.Float32bits(float32(v)))
		}
	}

	var entries []ifdEntry
	add := func(tag, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, data})
	}
	perSample := func(v uint16) []uint16 {
		out := make([]uint16, nb)
		for i := range out {
			out[i] = v
		}
		return out
	}

	add(tagImageWidth, typeLong, 1, enc32(uint32(g.Width)))
	add(tagImageLength, typeLong, 1, enc32(uint32(g.Height)))
	add(tagBitsPerSample, typeShort, uint32(nb), enc16s(perSample(32)))
	add(tagCompression, typeShort, 1, enc16(1))
	add(tagPhotometricInterpretation, typeShort, 1, enc16(1)) // BlackIsZero
	add(tagSamplesPerPixel, typeShort, 1, enc16(uint16(nb)))
	add(tagRowsPerStrip, typeLong, 1, enc32(uint32(g.Height)))
	add(tagPlanarConfiguration, typeShort, 1, enc16(1))
	add(tagSampleFormat, typeShort, uint32(nb), enc16s(perSample(3))) // IEEE float
	add(tagStripOffsets, typeLong, 1, make([]byte, 4))
	add(tagStripByteCounts, typeLong, 1, enc32(uint32(len(pixels))))

	add(tagModelPixelScale, typeDouble, 3, encDoubles([]float64{g.Transform.PixelWidth, g.Transform.PixelHeight, 0}))
	add(tagModelTiepoint, typeDouble, 6, encDoubles([]float64{0, 0, 0, g.Transform.OriginX, g.Transform.OriginY, 0}))
	add(tagGeoKeyDirectory, typeShort, uint32(len(geoKeys)), enc16s(geoKeys))
	addASCII := func(tag uint16, v string) {
		b := append([]byte(v), 0)
		add(tag, typeASCII, uint32(len(b)), b)
	}
	addASCII(tagGDALMetadata, gdalMetadata(bands))
	addASCII(tagGDALNoData, formatNoData(opts.NoData))
	if !s.Time.IsZero() {
		addASCII(tagDateTime, s.Time.UTC().Format(dateTimeLayout))
	}

	sort.Sort(byTag(entries))

	ifdSize := 2 + 12*len(entries) + 4
	valueDataOffset := 8 + ifdSize
	var large bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.data) > 4 {
			offset := uint32(valueDataOffset + large.Len())
			large.Write(e.data)
			if large.Len()%2 == 1 {
				large.WriteByte(0) // keep offsets word aligned
			}
			e.data = enc32(offset)
		}
	}
	pixelsOffset := uint32(valueDataOffset + large.Len())
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].data = enc32(pixelsOffset)
		}
	}

	if err := binary.Write(w, enc, uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(w, enc, e.tag); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.datatype); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.count); err != nil {
			return err
		}
		var val [4]byte
		copy(val[:], e.data)
		if _, err := w.Write(val[:]); err != nil {
			return err
		}
	}
	if err := binary.Write(w, enc, uint32(0)); err != nil {
		return err
	}
	if _, err := large.WriteTo(w); err != nil {
		return err
	}
	_, err = w.Write(pixels)
	return err
}

// geoKeyDirectory encodes an "EPSG:<code>" CRS.
func geoKeyDirectory(crs string) ([]uint16, error) {
	code, err := EPSGCode(crs)
	if err != nil {
		return nil, err
	}
	model, key := uint16(modelProjected), uint16(keyProjectedType)
	if code == 4326 {
		model, key = modelGeographic, keyGeographicType
	}
	return []uint16{
		1, 1, 0, 3,
		keyModelType, 0, 1, model,
		keyRasterType, 0, 1, rasterPixelArea,
		key, 0, 1, uint16(code),
	}, nil
}

// EPSGCode parses "EPSG:<code>".
func EPSGCode(crs string) (int, error) {
	prefix, code, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(crs)), ":")
	if !ok || prefix != "EPSG" {
		return 0, fmt.Errorf("unsupported CRS %q, want EPSG:<code>", crs)
	}
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 || n > math.MaxUint16 {
		return 0, fmt.Errorf("unsupported CRS %q", crs)
	}
	return n, nil
}

func gdalMetadata(bands []raster.Band) string {
	var sb strings.Builder
	sb.WriteString("<GDALMetadata>")
	for i, b := range bands {
		fmt.Fprintf(&sb, `<Item name="DESCRIPTION" sample="%d" role="description">%s</Item>`, i, html.EscapeString(b.Name))
	}
	sb.WriteString("</GDALMetadata>")
	return sb.String()
}

func formatNoData(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func enc16(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func enc32(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func enc16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}
