package rangeengine

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"

	"github.com/marmos91/cachecore/pkg/cachekey"
)

// GenerateBoundary produces a 48-character hex multipart boundary unique
// per response: the object key's two 64-bit halves followed by a random
// 64-bit value, each formatted explicitly as a fixed-width hex word so the
// output is always exactly 48 hex characters.
func GenerateBoundary(objKey cachekey.Object) (string, error) {
	var randBuf [8]byte
	if _, err := rand.Read(randBuf[:]); err != nil {
		return "", err
	}
	return generateBoundary(objKey, binary.BigEndian.Uint64(randBuf[:])), nil
}

func generateBoundary(objKey cachekey.Object, random uint64) string {
	hi, lo := objKey.Halves()
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], hi)
	binary.BigEndian.PutUint64(buf[8:16], lo)
	binary.BigEndian.PutUint64(buf[16:24], random)
	return hex.EncodeToString(buf[:])
}
