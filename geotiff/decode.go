package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/aaronland/go-image-tools/imaging"
	"golang.org/x/image/tiff"
)

// Decode reads a GeoTIFF produced by Encode (or any uncompressed RGBA
// GeoTIFF carrying ModelPixelScale and ModelTiepoint tags, in either byte
// order) back in to a Dataset.
func Decode(r io.Reader) (*Dataset, error) {

	body, err := io.ReadAll(r)

	if err != nil {
		return nil, fmt.Errorf("Failed to read raster body, %w", err)
	}

	tags, err := scanIFD(body)

	if err != nil {
		return nil, err
	}

	scale, ok := tags.doubles[tagModelPixelScale]

	if !ok || len(scale) < 2 {
		return nil, fmt.Errorf("Raster is missing a ModelPixelScale tag")
	}

	tiepoint, ok := tags.doubles[tagModelTiepoint]

	if !ok || len(tiepoint) < 6 {
		return nil, fmt.Errorf("Raster is missing a ModelTiepoint tag")
	}

	crs, err := crsFromGeoKeys(tags.shorts[tagGeoKeyDirectory])

	if err != nil {
		return nil, err
	}

	// The tiepoint anchors a pixel coordinate (i, j) to a world coordinate
	// (x, y); rebase it to pixel (0, 0).

	sx := scale[0]
	sy := scale[1]

	origin_x := tiepoint[3] - tiepoint[0]*sx
	origin_y := tiepoint[4] + tiepoint[1]*sy

	t := Transform{origin_x, sx, 0.0, origin_y, 0.0, -sy}

	im, err := tiff.Decode(bytes.NewReader(body))

	if err != nil {
		return nil, fmt.Errorf("Failed to decode raster bands, %w", err)
	}

	ds := &Dataset{
		Image:     imaging.Clone(im),
		Transform: t,
		CRS:       crs,
	}

	return ds, nil
}

func crsFromGeoKeys(keys []uint16) (CRS, error) {

	if len(keys) < 4 {
		return "", fmt.Errorf("Raster is missing a GeoKeyDirectory tag")
	}

	model_type := uint16(0)
	epsg := uint16(0)

	for i := 4; i+4 <= len(keys); i += 4 {

		switch keys[i] {
		case keyModelType:
			model_type = keys[i+3]
		case keyGeodeticCRS:
			epsg = keys[i+3]
		}
	}

	switch epsg {
	case 4326:
		return CRSGeographic, nil
	case 4978:
		return CRSGeocentric, nil
	}

	switch model_type {
	case modelTypeGeographic:
		return CRSGeographic, nil
	case modelTypeGeocentric:
		return CRSGeocentric, nil
	}

	return "", fmt.Errorf("Raster has an unrecognized coordinate reference system (EPSG:%d)", epsg)
}

// ifdTags holds the raw values of the first IFD's tags, keyed by tag id and
// bucketed by value type.
type ifdTags struct {
	shorts  map[uint16][]uint16
	longs   map[uint16][]uint32
	doubles map[uint16][]float64
}

func scanIFD(body []byte) (*ifdTags, error) {

	if len(body) < 8 {
		return nil, fmt.Errorf("Raster body is truncated")
	}

	var order binary.ByteOrder

	switch {
	case body[0] == 'I' && body[1] == 'I':
		order = binary.LittleEndian
	case body[0] == 'M' && body[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("Raster body is not a TIFF")
	}

	if order.Uint16(body[2:]) != 42 {
		return nil, fmt.Errorf("Raster body is not a TIFF")
	}

	ifd_offset := order.Uint32(body[4:])

	if int64(ifd_offset)+2 > int64(len(body)) {
		return nil, fmt.Errorf("Raster body is truncated")
	}

	count := int(order.Uint16(body[ifd_offset:]))

	tags := &ifdTags{
		shorts:  make(map[uint16][]uint16),
		longs:   make(map[uint16][]uint32),
		doubles: make(map[uint16][]float64),
	}

	for i := 0; i < count; i++ {

		entry_offset := int64(ifd_offset) + 2 + int64(i)*12

		if entry_offset+12 > int64(len(body)) {
			return nil, fmt.Errorf("Raster body is truncated")
		}

		entry := body[entry_offset : entry_offset+12]

		tag := order.Uint16(entry[0:])
		typ := order.Uint16(entry[2:])
		n := order.Uint32(entry[4:])

		var size int64

		switch typ {
		case typeByte, typeASCII:
			size = 1
		case typeShort:
			size = 2
		case typeLong:
			size = 4
		case typeDouble:
			size = 8
		default:
			continue
		}

		total := size * int64(n)

		var value []byte

		if total <= 4 {
			value = entry[8 : 8+total]
		} else {

			value_offset := int64(order.Uint32(entry[8:]))

			if value_offset+total > int64(len(body)) {
				return nil, fmt.Errorf("Raster body is truncated")
			}

			value = body[value_offset : value_offset+total]
		}

		switch typ {
		case typeShort:

			values := make([]uint16, n)

			for j := range values {
				values[j] = order.Uint16(value[j*2:])
			}

			tags.shorts[tag] = values

		case typeLong:

			values := make([]uint32, n)

			for j := range values {
				values[j] = order.Uint32(value[j*4:])
			}

			tags.longs[tag] = values

		case typeDouble:

			values := make([]float64, n)

			for j := range values {
				values[j] = math.Float64frombits(order.Uint64(value[j*8:]))
			}

			tags.doubles[tag] = values
		}
	}

	return tags, nil
}
