package zone

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/geozone/internal/geom"
)

// Fingerprint is a content hash of a zone definition.
type Fingerprint [blake2b.Size256]byte

// FingerprintOf hashes the id, the normalized vertex ring and the metadata.
// Definitions that differ only by an explicit closing vertex hash equal.
func FingerprintOf(id string, points []geom.Point, meta Metadata) Fingerprint {
	h, _ := blake2b.New256(nil) // ошибка возможна только для ключа > 64 байт

	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}

	writeString(id)

	ring := geom.Normalize(points)
	binary.LittleEndian.PutUint64(buf[:], uint64(len(ring)))
	h.Write(buf[:])
	for _, p := range ring {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.X))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Y))
		h.Write(buf[:])
	}

	if len(meta) > 0 {
		// json сортирует ключи map, так что кодировка детерминирована.
		raw, err := json.Marshal(meta)
		if err != nil {
			raw = []byte(fmt.Sprintf("%v", meta))
		}
		writeString(string(raw))
	}

	var fp Fingerprint
	h.Sum(fp[:0])

	return fp
}

// Fingerprint returns the fingerprint of d.
func (d Definition) Fingerprint() Fingerprint {
	return FingerprintOf(d.ID, d.Points, d.Metadata)
}
