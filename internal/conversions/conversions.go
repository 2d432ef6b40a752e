// Package conversions holds zero-copy conversions between []byte and string.
package conversions

import (
	"unsafe"
)

// ByteSlice2String converts bs to a string without a copy. bs must not be modified afterwards.
func ByteSlice2String(bs []byte) string {
	if len(bs) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(bs), len(bs))
}

// String2ByteSlice returns the bytes backing s without a copy. Do not modify the result.
func String2ByteSlice(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
