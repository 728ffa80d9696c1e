package serialization

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/models"
)

// encodeValue converts a supported Write value into its tree form.
// Integers and floats keep their Go width so an in-memory round trip is
// exact; vectors and colors become float32 arrays.
func encodeValue(v any) (any, bool) {
	switch x := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool, string:
		return x, true
	case Path:
		return string(x), true
	case mgl32.Vec2:
		return floats(x[:]), true
	case mgl32.Vec3:
		return floats(x[:]), true
	case mgl32.Vec4:
		return floats(x[:]), true
	case models.Color:
		return floats([]float32{x.R, x.G, x.B, x.A}), true
	case models.Handle:
		return uint64(x), true
	case models.AssetHandle:
		return x.String(), true
	default:
		return nil, false
	}
}

func floats(in []float32) []any {
	out := make([]any, len(in))
	for i, f := range in {
		out[i] = f
	}
	return out
}

// decodeValue stores v into out. It reports false, leaving out untouched,
// when v cannot represent out's type.
func decodeValue(v any, out any) bool {
	switch o := out.(type) {
	case *int:
		n, ok := toInt64(v, math.MinInt, math.MaxInt)
		if ok {
			*o = int(n)
		}
		return ok
	case *int8:
		n, ok := toInt64(v, math.MinInt8, math.MaxInt8)
		if ok {
			*o = int8(n)
		}
		return ok
	case *int16:
		n, ok := toInt64(v, math.MinInt16, math.MaxInt16)
		if ok {
			*o = int16(n)
		}
		return ok
	case *int32:
		n, ok := toInt64(v, math.MinInt32, math.MaxInt32)
		if ok {
			*o = int32(n)
		}
		return ok
	case *int64:
		n, ok := toInt64(v, math.MinInt64, math.MaxInt64)
		if ok {
			*o = n
		}
		return ok
	case *uint:
		n, ok := toUint64(v, math.MaxUint)
		if ok {
			*o = uint(n)
		}
		return ok
	case *uint8:
		n, ok := toUint64(v, math.MaxUint8)
		if ok {
			*o = uint8(n)
		}
		return ok
	case *uint16:
		n, ok := toUint64(v, math.MaxUint16)
		if ok {
			*o = uint16(n)
		}
		return ok
	case *uint32:
		n, ok := toUint64(v, math.MaxUint32)
		if ok {
			*o = uint32(n)
		}
		return ok
	case *uint64:
		n, ok := toUint64(v, math.MaxUint64)
		if ok {
			*o = n
		}
		return ok
	case *models.Handle:
		n, ok := toUint64(v, math.MaxUint64)
		if ok {
			*o = models.Handle(n)
		}
		return ok
	case *float32:
		f, ok := toFloat64(v)
		if ok {
			*o = float32(f)
		}
		return ok
	case *float64:
		f, ok := toFloat64(v)
		if ok {
			*o = f
		}
		return ok
	case *bool:
		b, ok := v.(bool)
		if ok {
			*o = b
		}
		return ok
	case *string:
		s, ok := v.(string)
		if ok {
			*o = s
		}
		return ok
	case *Path:
		s, ok := v.(string)
		if ok {
			*o = Path(s)
		}
		return ok
	case *mgl32.Vec2:
		return toFloats(v, o[:])
	case *mgl32.Vec3:
		return toFloats(v, o[:])
	case *mgl32.Vec4:
		return toFloats(v, o[:])
	case *models.Color:
		var c [4]float32
		if !toFloats(v, c[:]) {
			return false
		}
		*o = models.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
		return true
	case *models.AssetHandle:
		s, ok := v.(string)
		if !ok {
			return false
		}
		h, err := models.ParseAssetHandle(s)
		if err != nil {
			return false
		}
		*o = h
		return true
	default:
		return false
	}
}

// toFloats fills dst from an array value of exactly len(dst) numbers.
func toFloats(v any, dst []float32) bool {
	arr, ok := v.([]any)
	if !ok || len(arr) != len(dst) {
		return false
	}
	tmp := make([]float32, len(dst))
	for i, e := range arr {
		f, ok := toFloat64(e)
		if !ok {
			return false
		}
		tmp[i] = float32(f)
	}
	copy(dst, tmp)
	return true
}

func toInt64(v any, lo, hi int64) (int64, bool) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		n = int64(x)
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		n = int64(x)
	case float32:
		return toInt64(float64(x), lo, hi)
	case json.Number:
		i, err := strconv.ParseInt(x.String(), 10, 64)
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			return toInt64(f, lo, hi)
		}
		n = i
	default:
		return 0, false
	}
	if n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func toUint64(v any, hi uint64) (uint64, bool) {
	var n uint64
	switch x := v.(type) {
	case uint:
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint16:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case uint64:
		n = x
	case int, int8, int16, int32, int64:
		i, _ := toInt64(x, math.MinInt64, math.MaxInt64)
		if i < 0 {
			return 0, false
		}
		n = uint64(i)
	case float64:
		if x != math.Trunc(x) || x < 0 || x >= math.MaxUint64 {
			return 0, false
		}
		n = uint64(x)
	case float32:
		return toUint64(float64(x), hi)
	case json.Number:
		u, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		n = u
	default:
		return 0, false
	}
	if n > hi {
		return 0, false
	}
	return n, true
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case int, int8, int16, int32, int64:
		n, _ := toInt64(x, math.MinInt64, math.MaxInt64)
		return float64(n), true
	case uint, uint8, uint16, uint32, uint64:
		n, _ := toUint64(x, math.MaxUint64)
		return float64(n), true
	default:
		return 0, false
	}
}
