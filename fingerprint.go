package cadastre

import (
	"encoding/binary"
	"strconv"

	"github.com/zeebo/xxh3"
)

// FingerprintRecord computes a stable fingerprint over the mutable record
// payload. Fields are length-prefixed so adjacent values cannot collide.
func FingerprintRecord(name string, volume int64, summary string, categories []string) string {
	buf := make([]byte, 0, len(name)+len(summary)+64)
	buf = appendField(buf, name)
	var vol [8]byte
	binary.BigEndian.PutUint64(vol[:], uint64(volume))
	buf = append(buf, vol[:]...)
	buf = appendField(buf, summary)
	for _, c := range categories {
		buf = appendField(buf, c)
	}
	return strconv.FormatUint(xxh3.Hash(buf), 16)
}

func appendField(buf []byte, s string) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	buf = append(buf, n[:]...)
	return append(buf, s...)
}
