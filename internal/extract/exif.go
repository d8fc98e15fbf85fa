package extract

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// gpsCoordinates pulls the GPS position out of JPEG EXIF metadata. ok is
// false when the image carries no usable tags; (0, 0) is treated as absent
// because cameras write it when the fix failed.
func gpsCoordinates(image []byte) (lat, lon float64, ok bool) {
	x, err := exif.Decode(bytes.NewReader(image))
	if err != nil {
		return 0, 0, false
	}

	lat, lon, err = x.LatLong()
	if err != nil {
		return 0, 0, false
	}
	if lat == 0 && lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}
