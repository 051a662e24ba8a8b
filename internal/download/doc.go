// Package download persists resources discovered during a crawl.
//
// Files are stored under an extension-keyed layout:
//
//	<root>/<ext>/<basename>
//
// where ext is the lowercased extension of the URL path without the dot
// ("unknown" when there is none) and basename is the last path segment
// ("index.html" when the path ends in a slash). Two addresses that map to the
// same file overwrite each other silently.
//
// Every saved file gets a SHA3-256 digest. JPEG, TIFF and HEIC images are
// additionally scanned for EXIF metadata such as camera model, serial
// numbers and GPS coordinates.
package download
