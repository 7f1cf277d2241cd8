package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tags used by this package. Baseline tags per the TIFF 6.0
// specification, geo tags per the GeoTIFF specification.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagExtraSamples    = 338
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGeoAsciiParams  = 34737
)

// TIFF value types.
const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

// GeoTIFF keys stored in the GeoKeyDirectory.
const (
	keyModelType   = 1024
	keyRasterType  = 1025
	keyCitation    = 1026
	keyGeodeticCRS = 2048
)

// GeoTIFF model types.
const (
	modelTypeGeographic = 2
	modelTypeGeocentric = 3
)

// WriteError is returned when a dataset can not be serialized.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("Failed to write raster, %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ifdEntry is a single IFD record with its raw little-endian payload. Values
// of four bytes or fewer are stored inline, anything larger is relocated to
// the data area following the IFD.
type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func entryShorts(tag uint16, values ...uint16) *ifdEntry {

	value := make([]byte, 2*len(values))

	for i, v := range values {
		binary.LittleEndian.PutUint16(value[i*2:], v)
	}

	return &ifdEntry{
		tag:   tag,
		typ:   typeShort,
		count: uint32(len(values)),
		value: value,
	}
}

func entryLong(tag uint16, v uint32) *ifdEntry {

	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, v)

	return &ifdEntry{
		tag:   tag,
		typ:   typeLong,
		count: 1,
		value: value,
	}
}

func entryDoubles(tag uint16, values ...float64) *ifdEntry {

	value := make([]byte, 8*len(values))

	for i, v := range values {
		binary.LittleEndian.PutUint64(value[i*8:], math.Float64bits(v))
	}

	return &ifdEntry{
		tag:   tag,
		typ:   typeDouble,
		count: uint32(len(values)),
		value: value,
	}
}

func entryASCII(tag uint16, s string) *ifdEntry {

	value := append([]byte(s), 0)

	return &ifdEntry{
		tag:   tag,
		typ:   typeASCII,
		count: uint32(len(value)),
		value: value,
	}
}

// Encode serializes ds as a little-endian, uncompressed, single-strip,
// interleaved RGBA GeoTIFF. Pixel values are written exactly as stored.
func Encode(wr io.Writer, ds *Dataset) error {

	w := ds.Width()
	h := ds.Height()

	if w <= 0 || h <= 0 {
		return &WriteError{Err: fmt.Errorf("invalid raster dimensions %dx%d", w, h)}
	}

	// Interleaved RGBA rows, dropping any per-row padding in the source
	// image's pixel buffer.

	pix := make([]byte, w*h*4)

	for row := 0; row < h; row++ {
		src := ds.Image.PixOffset(ds.Image.Rect.Min.X, ds.Image.Rect.Min.Y+row)
		copy(pix[row*w*4:(row+1)*w*4], ds.Image.Pix[src:src+w*4])
	}

	scale_x := math.Abs(ds.Transform[1])
	scale_y := math.Abs(ds.Transform[5])

	origin_x, origin_y := ds.Transform.Apply(0, 0)

	model_type := uint16(modelTypeGeographic)
	citation := "WGS 84"

	if ds.CRS == CRSGeocentric {
		model_type = modelTypeGeocentric
		citation = "WGS 84 geocentric"
	}

	epsg := ds.CRS.EPSGCode()

	if epsg == 0 {
		return &WriteError{Err: fmt.Errorf("unknown CRS '%s'", ds.CRS)}
	}

	geo_keys := []uint16{
		1, 1, 0, 4,
		keyModelType, 0, 1, model_type,
		keyRasterType, 0, 1, 1, // RasterPixelIsArea
		keyCitation, tagGeoAsciiParams, uint16(len(citation) + 1), 0,
		keyGeodeticCRS, 0, 1, uint16(epsg),
	}

	entries := []*ifdEntry{
		entryLong(tagImageWidth, uint32(w)),
		entryLong(tagImageLength, uint32(h)),
		entryShorts(tagBitsPerSample, 8, 8, 8, 8),
		entryShorts(tagCompression, 1),
		entryShorts(tagPhotometric, 2),
		entryLong(tagStripOffsets, 0), // patched below
		entryShorts(tagSamplesPerPixel, 4),
		entryLong(tagRowsPerStrip, uint32(h)),
		entryLong(tagStripByteCounts, uint32(len(pix))),
		entryShorts(tagPlanarConfig, 1),
		entryShorts(tagExtraSamples, 2), // unassociated alpha
		entryDoubles(tagModelPixelScale, scale_x, scale_y, 0.0),
		entryDoubles(tagModelTiepoint, 0, 0, 0, origin_x, origin_y, 0),
		entryShorts(tagGeoKeyDirectory, geo_keys...),
		entryASCII(tagGeoAsciiParams, citation+"|"),
	}

	// First pass: lay out the data area after the IFD and assign offsets to
	// every entry too large to store inline.

	data_start := uint32(8 + 2 + 12*len(entries) + 4)
	cursor := data_start

	offsets := make(map[uint16]uint32)

	for _, e := range entries {

		if len(e.value) <= 4 {
			continue
		}

		offsets[e.tag] = cursor
		cursor += uint32(len(e.value))

		if cursor%2 != 0 {
			cursor += 1
		}
	}

	pix_offset := cursor

	for _, e := range entries {

		if e.tag == tagStripOffsets {
			binary.LittleEndian.PutUint32(e.value, pix_offset)
		}
	}

	// Second pass: emit header, IFD, data area and the pixel strip.

	var buf bytes.Buffer

	buf.Write([]byte{'I', 'I'})
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(8))

	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))

	for _, e := range entries {

		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)

		inline := make([]byte, 4)

		if len(e.value) <= 4 {
			copy(inline, e.value)
		} else {
			binary.LittleEndian.PutUint32(inline, offsets[e.tag])
		}

		buf.Write(inline)
	}

	binary.Write(&buf, binary.LittleEndian, uint32(0)) // no next IFD

	for _, e := range entries {

		if len(e.value) <= 4 {
			continue
		}

		buf.Write(e.value)

		if buf.Len()%2 != 0 {
			buf.WriteByte(0)
		}
	}

	buf.Write(pix)

	_, err := wr.Write(buf.Bytes())

	if err != nil {
		return &WriteError{Err: err}
	}

	return nil
}
