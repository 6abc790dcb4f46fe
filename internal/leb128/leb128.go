// Package leb128 encodes the variable-length integers used throughout the
// Wasm binary format: section and function sizes, counts, indices, and
// immediates. Only the encode direction is implemented — this repo emits
// Wasm, it never parses it back.
package leb128

// EncodeUint32 encodes x as unsigned LEB128.
func EncodeUint32(x uint32) []byte {
	return appendUint64(nil, uint64(x))
}

// EncodeUint64 encodes x as unsigned LEB128.
func EncodeUint64(x uint64) []byte {
	return appendUint64(nil, x)
}

// AppendUint32 appends the unsigned LEB128 encoding of x to dst.
func AppendUint32(dst []byte, x uint32) []byte {
	return appendUint64(dst, uint64(x))
}

// AppendUint64 appends the unsigned LEB128 encoding of x to dst.
func AppendUint64(dst []byte, x uint64) []byte {
	return appendUint64(dst, x)
}

func appendUint64(dst []byte, n uint64) []byte {
	for n >= 0x80 {
		dst = append(dst, byte(n&0x7f)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}

// Uint32Len returns the number of bytes EncodeUint32(x) would produce,
// without allocating.
func Uint32Len(x uint32) int {
	return uint64Len(uint64(x))
}

// Uint64Len returns the number of bytes EncodeUint64(x) would produce,
// without allocating.
func Uint64Len(x uint64) int {
	return uint64Len(x)
}

func uint64Len(n uint64) int {
	length := 1
	for n >= 0x80 {
		length++
		n >>= 7
	}
	return length
}

// EncodeInt32 encodes x as signed LEB128.
func EncodeInt32(x int32) []byte {
	return appendInt32(nil, x)
}

// AppendInt32 appends the signed LEB128 encoding of x to dst.
func AppendInt32(dst []byte, x int32) []byte {
	return appendInt32(dst, x)
}

func appendInt32(dst []byte, x int32) []byte {
	more := true
	for more {
		b := byte(x & 0x7f)
		x >>= 7 // arithmetic shift: sign bit propagates
		signBitSet := b&0x40 != 0
		if (x == 0 && !signBitSet) || (x == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}
