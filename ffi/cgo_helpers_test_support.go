package main

// Cgo helpers used by ffi_test.go. They live in a non-_test.go file
// because Go does not support "import C" directly inside _test.go files.

// #include <stdlib.h>
import "C"
import "unsafe"

func cstr(s string) *C.char {
	return C.CString(s)
}

func freeCstr(s *C.char) {
	C.free(unsafe.Pointer(s))
}

func bytePtrToCChar(p *byte) *C.char {
	return (*C.char)(unsafe.Pointer(p))
}
