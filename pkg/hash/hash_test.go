package hash

import (
	"testing"
)

func TestSHA256Hex(t *testing.T) {
	// Known SHA256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	got := SHA256Hex("hello")
	if got != want {
		t.Errorf("SHA256Hex(\"hello\") = %s, want %s", got, want)
	}
}

func TestSHA256Hex_Empty(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	got := SHA256Hex("")
	if got != want {
		t.Errorf("SHA256Hex(\"\") = %s, want %s", got, want)
	}
}

func TestPrefix(t *testing.T) {
	full := SHA256Hex("Découvrez notre nouveau village")

	tests := []struct {
		name string
		n    int
		want string
	}{
		{"8 chars", 8, full[:8]},
		{"16 chars", 16, full[:16]},
		{"too long", 100, full},
		{"zero", 0, full},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prefix("Découvrez notre nouveau village", tt.n)
			if got != tt.want {
				t.Errorf("Prefix(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}
