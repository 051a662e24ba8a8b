package download

import (
	"path"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifTags are the tags kept in a download's metadata. Everything else in the
// EXIF block is dropped.
var exifTags = map[string]struct{}{
	"Make":               {},
	"Model":              {},
	"Software":           {},
	"ProcessingSoftware": {},
	"Artist":             {},
	"Copyright":          {},
	"XPAuthor":           {},
	"DateTime":           {},
	"DateTimeOriginal":   {},
	"SerialNumber":       {},
	"CameraSerialNumber": {},
	"BodySerialNumber":   {},
	"LensSerialNumber":   {},
	"GPSLatitude":        {},
	"GPSLatitudeRef":     {},
	"GPSLongitude":       {},
	"GPSLongitudeRef":    {},
	"GPSAltitude":        {},
}

func hasEXIFContainer(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".tif", ".tiff", ".heic":
		return true
	}
	return false
}

// InspectEXIF returns the identifying EXIF tags of an image, or nil when the
// data carries no readable EXIF block.
func InspectEXIF(data []byte) map[string]string {
	raw, err := exif.SearchAndExtractExif(data)
	if err != nil || raw == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return nil
	}

	var out map[string]string
	for _, entry := range entries {
		if _, ok := exifTags[entry.TagName]; !ok {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[entry.TagName] = entry.Formatted
	}
	return out
}
