package common

import (
	"unsafe"
)

// AlignUp rounds n up to the next multiple of a. a must be a power of two.
func AlignUp(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// IsAligned reports whether n is a multiple of a. a must be a power of two.
func IsAligned(n, a int) bool {
	return n&(a-1) == 0
}

// PutUint writes the low width bytes of x into b little-endian.
func PutUint(b []byte, x uint64, width int) {
	for i := 0; i < width; i++ {
		b[i] = byte(x)
		x >>= 8
	}
}

// GetUint reads width little-endian bytes from b into a uint64.
func GetUint(b []byte, width int) uint64 {
	var x uint64
	for i := width - 1; i >= 0; i-- {
		x = x<<8 | uint64(b[i])
	}
	return x
}

// RawBytes aliases the backing array of vs as a byte slice without copying.
// The caller must keep vs alive for the duration of the alias; the host
// byte order must match the wire order (little-endian).
func RawBytes[T any](vs []T) []byte {
	if len(vs) == 0 {
		return nil
	}
	var z T
	n := len(vs) * int(unsafe.Sizeof(z))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), n)
}
