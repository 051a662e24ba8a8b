package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// Decode converts a response body to text.
//
// Valid UTF-8 is returned as is. Otherwise, an encoding that is declared with
// certainty (BOM, Content-Type parameter or <meta charset>) is used. As a last
// resort the invalid byte sequences are replaced with U+FFFD and lossy is true.
func Decode(body []byte, contentType string) (text string, lossy bool) {
	if utf8.Valid(body) {
		return string(body), false
	}

	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if certain && name != "utf-8" {
		if decoded, err := enc.NewDecoder().Bytes(body); err == nil {
			return string(decoded), false
		}
	}

	return strings.ToValidUTF8(string(body), "\uFFFD"), true
}
