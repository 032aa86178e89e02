package rowcopy

import (
	"bytes"
	"testing"
)

func TestStripRowPitchNoPadding(t *testing.T) {
	width, height, bpp := 4, 3, 4
	rowBytes := width * bpp
	src := make([]byte, rowBytes*height)
	for i := range src {
		src[i] = byte(i)
	}

	got := StripRowPitch(nil, src, width, height, bpp, rowBytes)
	if !bytes.Equal(got, src) {
		t.Fatalf("expected identity copy when rowPitch == rowBytes")
	}
}

func TestStripRowPitchWithPadding(t *testing.T) {
	width, height, bpp := 2, 2, 4
	rowBytes := width * bpp // 8
	rowPitch := 16          // padded

	src := make([]byte, rowPitch*height)
	// row 0: 0..7 real, 8..15 padding
	for i := 0; i < rowBytes; i++ {
		src[i] = byte(i + 1)
	}
	// row 1: 16..23 real, 24..31 padding
	for i := 0; i < rowBytes; i++ {
		src[rowPitch+i] = byte(i + 100)
	}

	got := StripRowPitch(nil, src, width, height, bpp, rowPitch)
	if len(got) != rowBytes*height {
		t.Fatalf("len = %d, want %d", len(got), rowBytes*height)
	}
	for i := 0; i < rowBytes; i++ {
		if got[i] != byte(i+1) {
			t.Fatalf("row0[%d] = %d, want %d", i, got[i], i+1)
		}
	}
	for i := 0; i < rowBytes; i++ {
		if got[rowBytes+i] != byte(i+100) {
			t.Fatalf("row1[%d] = %d, want %d", i, got[rowBytes+i], i+100)
		}
	}
}

func TestStripRowPitchReusesCapacity(t *testing.T) {
	width, height, bpp := 2, 2, 4
	rowBytes := width * bpp
	src := make([]byte, rowBytes*height)

	dst := make([]byte, 0, rowBytes*height*2)
	got := StripRowPitch(dst, src, width, height, bpp, rowBytes)
	if len(got) != rowBytes*height {
		t.Fatalf("len = %d, want %d", len(got), rowBytes*height)
	}
	if &got[0] != &dst[:1][0] {
		t.Fatalf("expected dst's backing array to be reused")
	}
}
