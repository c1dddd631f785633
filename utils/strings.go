package utils

import (
	"unsafe"
)

// BytesToString aliases b; the caller must not modify b afterwards.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
