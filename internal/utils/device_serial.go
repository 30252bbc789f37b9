package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const serialSuffixLength = 9

var base36Limit = new(big.Int).Exp(big.NewInt(36), big.NewInt(serialSuffixLength), nil)

// GenerateDeviceSerial returns DEV-<unix millis>-<random base36>.
func GenerateDeviceSerial(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, base36Limit)
	if err != nil {
		return "", fmt.Errorf("generate serial: %w", err)
	}
	suffix := strconv.FormatUint(n.Uint64(), 36)
	for len(suffix) < serialSuffixLength {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("DEV-%d-%s", now.UnixMilli(), suffix), nil
}
