package value

import (
	"encoding/binary"
	"fmt"
	"math"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
)

// Unbox converts a managed value back to a host-native one. The check is
// against the value's actual runtime type, not the static parameter: a
// mismatch between T and the runtime layout fails with a wrong_type error.
func Unbox[T any](v Value) (T, error) {
	var zero T

	desc, ok := v.Describe()
	if !ok {
		return zero, errors.New(errors.PhaseConvert, errors.KindWrongType).
			GoType(fmt.Sprintf("%T", zero)).
			Detail("runtime reports no type metadata for value").
			Build()
	}

	want := kindForTarget(&zero)
	if want != desc.Kind {
		return zero, errors.WrongType(fmt.Sprintf("%T", zero), desc.Name)
	}

	bits, err := v.binding().Bits(v.Raw())
	if err != nil {
		return zero, errors.Internal(errors.PhaseConvert, "read payload", err)
	}
	if desc.Kind != gcbridge.KindString && len(bits) != int(desc.Size) {
		return zero, errors.Internal(errors.PhaseConvert,
			fmt.Sprintf("payload is %d bytes, type says %d", len(bits), desc.Size), nil)
	}

	decodeBits(&zero, bits)
	return zero, nil
}

func kindForTarget(target any) gcbridge.TypeKind {
	switch target.(type) {
	case *bool:
		return gcbridge.KindBool
	case *int8:
		return gcbridge.KindInt8
	case *int16:
		return gcbridge.KindInt16
	case *int32:
		return gcbridge.KindInt32
	case *int64:
		return gcbridge.KindInt64
	case *uint8:
		return gcbridge.KindUInt8
	case *uint16:
		return gcbridge.KindUInt16
	case *uint32:
		return gcbridge.KindUInt32
	case *uint64:
		return gcbridge.KindUInt64
	case *float32:
		return gcbridge.KindFloat32
	case *float64:
		return gcbridge.KindFloat64
	case *string:
		return gcbridge.KindString
	}
	return gcbridge.KindStruct
}

func decodeBits(target any, bits []byte) {
	switch t := target.(type) {
	case *bool:
		*t = len(bits) > 0 && bits[0] != 0
	case *int8:
		*t = int8(bits[0])
	case *int16:
		*t = int16(binary.LittleEndian.Uint16(bits))
	case *int32:
		*t = int32(binary.LittleEndian.Uint32(bits))
	case *int64:
		*t = int64(binary.LittleEndian.Uint64(bits))
	case *uint8:
		*t = bits[0]
	case *uint16:
		*t = binary.LittleEndian.Uint16(bits)
	case *uint32:
		*t = binary.LittleEndian.Uint32(bits)
	case *uint64:
		*t = binary.LittleEndian.Uint64(bits)
	case *float32:
		*t = math.Float32frombits(binary.LittleEndian.Uint32(bits))
	case *float64:
		*t = math.Float64frombits(binary.LittleEndian.Uint64(bits))
	case *string:
		*t = string(bits)
	}
}
