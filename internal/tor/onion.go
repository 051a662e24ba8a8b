package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// OnionSuffix is the pseudo top-level domain of onion services.
const OnionSuffix = ".onion"

const onionV3Version = 0x03

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)
)

// IsOnionHost reports whether host (without port) is an onion service name.
// Subdomains such as "www.<addr>.onion" count.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// ValidateOnionHost checks the v3 address inside host, including its
// checksum. Subdomain labels in front of the address are ignored.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	addr := labels[len(labels)-1] + OnionSuffix

	if onionV2Pattern.MatchString(addr) {
		return ErrV2AddressDeprecated
	}
	if !isValidV3Address(addr) {
		return ErrInvalidOnionAddress
	}
	return nil
}

// isValidV3Address verifies the layout pubkey(32) | checksum(2) | version(1)
// where checksum is the first two bytes of
// SHA3-256(".onion checksum" | pubkey | version).
func isValidV3Address(addr string) bool {
	if !onionV3Pattern.MatchString(addr) {
		return false
	}
	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(addr, OnionSuffix)))
	if err != nil || len(decoded) != 35 || decoded[34] != onionV3Version {
		return false
	}
	sum := onionChecksum(decoded[:32], decoded[34])
	return decoded[32] == sum[0] && decoded[33] == sum[1]
}

func onionChecksum(pubkey []byte, version byte) [2]byte {
	h := sha3.New256()
	h.Write([]byte(".onion checksum"))
	h.Write(pubkey)
	h.Write([]byte{version})
	var out [2]byte
	copy(out[:], h.Sum(nil))
	return out
}
