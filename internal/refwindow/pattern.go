package refwindow

import (
	"encoding/hex"
	"fmt"
)

// PatternSize is the length of the calibration pattern in bytes. The
// pattern travels to the relaunched child on the command line as a hex
// string; both sides of that contract live in this package.
const PatternSize = 16

// EncodePattern converts a calibration pattern to its command-line form
func EncodePattern(pattern []byte) (string, error) {
	if len(pattern) != PatternSize {
		return "", fmt.Errorf("pattern must be %d bytes, got %d", PatternSize, len(pattern))
	}
	return hex.EncodeToString(pattern), nil
}

// DecodePattern parses the command-line form back into pattern bytes
func DecodePattern(encoded string) ([]byte, error) {
	pattern, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("malformed pattern %q: %w", encoded, err)
	}
	if len(pattern) != PatternSize {
		return nil, fmt.Errorf("pattern must be %d bytes, got %d", PatternSize, len(pattern))
	}
	return pattern, nil
}

// patternPixels expands the pattern into one RGBA pixel per byte. Each byte
// drives a full-height color bar; neighboring values that differ by one bit
// still produce visibly distinct bars because the channels mix the value
// with its complement.
func patternPixels(pattern []byte) []byte {
	pix := make([]byte, len(pattern)*4)
	for i, b := range pattern {
		pix[i*4+0] = b
		pix[i*4+1] = ^b
		pix[i*4+2] = b ^ 0x55
		pix[i*4+3] = 0xFF
	}
	return pix
}
