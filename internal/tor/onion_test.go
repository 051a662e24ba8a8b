package tor

import (
	"encoding/base32"
	"errors"
	"strings"
	"testing"
)

// onionAddressFromKey builds a checksummed v3 address for a public key.
func onionAddressFromKey(pubkey []byte) string {
	sum := onionChecksum(pubkey, onionV3Version)
	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, sum[0], sum[1], onionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix
}

func TestValidateOnionHost(t *testing.T) {
	t.Parallel()

	zero := onionAddressFromKey(make([]byte, 32))
	seq := make([]byte, 32)
	for i := range seq {
		seq[i] = byte(i)
	}
	sequential := onionAddressFromKey(seq)

	if zero != "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion" {
		t.Fatalf("unexpected all-zero address %s", zero)
	}

	// Flip one character to break the checksum.
	broken := "b" + zero[1:]

	tests := []struct {
		name string
		host string
		want error
	}{
		{"valid", zero, nil},
		{"valid sequential key", sequential, nil},
		{"uppercase", strings.ToUpper(zero), nil},
		{"subdomain", "www." + sequential, nil},
		{"trailing dot", zero + ".", nil},
		{"bad checksum", broken, ErrInvalidOnionAddress},
		{"too short", "abc.onion", ErrInvalidOnionAddress},
		{"v2", "expyuzz4wqqyqhjn.onion", ErrV2AddressDeprecated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := ValidateOnionHost(tt.host); !errors.Is(err, tt.want) {
				t.Errorf("ValidateOnionHost(%q) = %v, want %v", tt.host, err, tt.want)
			}
		})
	}
}

func TestIsOnionHost(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"example.onion":     true,
		"WWW.EXAMPLE.ONION": true,
		"example.com":       false,
		"onion.example.com": false,
	}
	for host, want := range tests {
		if got := IsOnionHost(host); got != want {
			t.Errorf("IsOnionHost(%q) = %v, want %v", host, got, want)
		}
	}
}
