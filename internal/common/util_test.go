package common

import (
	"testing"
)

func TestGenerateRandByteArray(t *testing.T) {
	const n = 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)
	if len(a) != n || len(b) != n {
		t.Fatalf("expected %d bytes, got %d and %d", n, len(a), len(b))
	}
	if string(a) == string(b) {
		t.Fatalf("two random arrays are equal: %x", a)
	}
}

func TestWipeByteArray(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	WipeByteArray(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not wiped: %d", i, v)
		}
	}
	WipeByteArray(nil) // must not panic
}
