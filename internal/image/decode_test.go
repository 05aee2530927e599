package imagepkg

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image/png"
	"testing"

	errs "github.com/youruser/bannerapp/internal/errors"
)

// withHeaderSize returns a small PNG whose IHDR claims w x h.
func withHeaderSize(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(8, 8, red)); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestDecodeBytesPixelLimit(t *testing.T) {
	tests := []struct {
		name string
		w, h uint32
		code errs.Code
	}{
		{"header over limit", 12000, 12000, errs.ErrCodeTooLarge},
		{"wide and short", 1 << 30, 1, errs.ErrCodeTooLarge},
		{"header under limit, truncated pixels", 200, 200, errs.ErrCodeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeBytes(withHeaderSize(t, tt.w, tt.h))
			if img != nil || !errs.Is(err, tt.code) {
				t.Fatalf("DecodeBytes = %v, %v; want %s", img, err, tt.code)
			}
		})
	}
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(30, 20, blue)); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Fatalf("decoded %v", b)
	}

	if _, err := DecodeBytes([]byte("plain text")); !errs.Is(err, errs.ErrCodeDecode) {
		t.Fatalf("err = %v, want DECODE_FAILED", err)
	}
}
