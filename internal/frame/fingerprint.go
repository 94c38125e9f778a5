package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a digest of the schema and of the row multiset. Row
// order does not contribute, so two reads of the same table compare equal
// regardless of scan order; any value, NULL, or column change does.
func (f *Frame) Fingerprint() string {
	h := xxh3.New()
	var buf []byte
	for _, c := range f.Columns {
		buf = buf[:0]
		buf = append(buf, Fold(c.Name)...)
		buf = append(buf, 0)
		buf = append(buf, c.Kind.String()...)
		buf = append(buf, 0)
		_, _ = h.Write(buf)
	}
	schema := h.Sum64()

	// Summing per-row hashes keeps the digest independent of row order while
	// still counting duplicates.
	var sum uint64
	for _, row := range f.Rows {
		buf = buf[:0]
		for _, v := range row {
			buf = appendValue(buf, v)
		}
		sum += xxh3.Hash(buf)
	}

	var tail [24]byte
	binary.LittleEndian.PutUint64(tail[0:], schema)
	binary.LittleEndian.PutUint64(tail[8:], sum)
	binary.LittleEndian.PutUint64(tail[16:], uint64(len(f.Rows)))
	return fmt.Sprintf("%016x", xxh3.Hash(tail[:]))
}

// appendValue writes a type-tagged, length-delimited encoding of v. Integer
// widths are normalised so that drivers returning int32 or int64 for the same
// stored value hash alike.
func appendValue(buf []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(buf, 'n', 0)
	case bool:
		if t {
			return append(buf, 'b', '1', 0)
		}
		return append(buf, 'b', '0', 0)
	case int:
		return appendInt(buf, int64(t))
	case int8:
		return appendInt(buf, int64(t))
	case int16:
		return appendInt(buf, int64(t))
	case int32:
		return appendInt(buf, int64(t))
	case int64:
		return appendInt(buf, t)
	case uint8:
		return appendInt(buf, int64(t))
	case uint16:
		return appendInt(buf, int64(t))
	case uint32:
		return appendInt(buf, int64(t))
	case uint64:
		if t > math.MaxInt64 {
			buf = append(buf, 'u')
			buf = strconv.AppendUint(buf, t, 10)
			return append(buf, 0)
		}
		return appendInt(buf, int64(t))
	case float32:
		return appendFloat(buf, float64(t))
	case float64:
		return appendFloat(buf, t)
	case string:
		buf = append(buf, 's')
		buf = strconv.AppendInt(buf, int64(len(t)), 10)
		buf = append(buf, ':')
		return append(buf, t...)
	case []byte:
		buf = append(buf, 'x')
		buf = strconv.AppendInt(buf, int64(len(t)), 10)
		buf = append(buf, ':')
		return append(buf, t...)
	case time.Time:
		buf = append(buf, 't')
		buf = t.UTC().AppendFormat(buf, time.RFC3339Nano)
		return append(buf, 0)
	default:
		s := fmt.Sprint(t)
		buf = append(buf, 'v')
		buf = strconv.AppendInt(buf, int64(len(s)), 10)
		buf = append(buf, ':')
		return append(buf, s...)
	}
}

func appendInt(buf []byte, n int64) []byte {
	buf = append(buf, 'i')
	buf = strconv.AppendInt(buf, n, 10)
	return append(buf, 0)
}

func appendFloat(buf []byte, f float64) []byte {
	buf = append(buf, 'f')
	buf = strconv.AppendFloat(buf, f, 'g', -1, 64)
	return append(buf, 0)
}
