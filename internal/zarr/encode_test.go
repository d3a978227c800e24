package zarr

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func uint16Plane(w, h int, values ...uint16) Plane {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return Plane{DType: Uint16, Width: w, Height: h, Data: data}
}

func TestEncodeChunk_PadsEdgeTile(t *testing.T) {
	p := uint16Plane(2, 2, 1, 2, 3, 4)

	out, err := EncodeChunk(p, Shape{1, 1, 1, 8, 8})
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if len(out) != 8*8*2 {
		t.Fatalf("expected %d bytes, got %d", 8*8*2, len(out))
	}

	decoded := make([]uint16, 64)
	if err := binary.Read(bytes.NewReader(out), binary.LittleEndian, decoded); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := uint16(0)
			if y < 2 && x < 2 {
				want = uint16(y*2 + x + 1)
			}
			if got := decoded[y*8+x]; got != want {
				t.Fatalf("sample (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestEncodeChunk_FullTileIsCopied(t *testing.T) {
	p := uint16Plane(2, 1, 0xBEEF, 0x0102)

	out, err := EncodeChunk(p, Shape{1, 1, 1, 1, 2})
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if !bytes.Equal(out, []byte{0xEF, 0xBE, 0x02, 0x01}) {
		t.Fatalf("unexpected bytes % x", out)
	}

	out[0] = 0
	if p.Data[0] != 0xEF {
		t.Fatal("encoded chunk aliases plane data")
	}
}

func TestEncodeChunk_PaddingLaw(t *testing.T) {
	dtypes := []DType{Int8, Uint8, Int16, Uint16, Int32, Uint32, Float32, Float64}
	for _, dt := range dtypes {
		for _, dims := range [][4]int{{3, 5, 4, 8}, {7, 1, 8, 8}, {1, 1, 1, 1}, {4, 4, 4, 4}} {
			w, h, cw, ch := dims[0], dims[1], dims[2], dims[3]
			if w > cw || h > ch {
				continue
			}
			data := make([]byte, w*h*dt.Size)
			for i := range data {
				data[i] = byte(i%251 + 1)
			}

			out, err := EncodeChunk(Plane{DType: dt, Width: w, Height: h, Data: data}, Shape{1, 1, 1, ch, cw})
			if err != nil {
				t.Fatalf("%s %dx%d in %dx%d: %v", dt, w, h, cw, ch, err)
			}
			if len(out) != cw*ch*dt.Size {
				t.Fatalf("%s: expected %d bytes, got %d", dt, cw*ch*dt.Size, len(out))
			}
			for y := 0; y < ch; y++ {
				for x := 0; x < cw; x++ {
					got := out[(y*cw+x)*dt.Size : (y*cw+x+1)*dt.Size]
					if y < h && x < w {
						want := data[(y*w+x)*dt.Size : (y*w+x+1)*dt.Size]
						if !bytes.Equal(got, want) {
							t.Fatalf("%s (%d,%d): got % x want % x", dt, x, y, got, want)
						}
					} else if !bytes.Equal(got, make([]byte, dt.Size)) {
						t.Fatalf("%s (%d,%d): padding not zero: % x", dt, x, y, got)
					}
				}
			}
		}
	}
}

func TestEncodeChunk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		plane  Plane
		chunks Shape
	}{
		{"short data", Plane{DType: Uint16, Width: 2, Height: 2, Data: make([]byte, 6)}, Shape{1, 1, 1, 2, 2}},
		{"plane larger than chunk", uint16Plane(3, 1, 1, 2, 3), Shape{1, 1, 1, 1, 2}},
		{"multi-plane chunk", uint16Plane(1, 1, 1), Shape{1, 2, 1, 1, 1}},
		{"empty chunk", uint16Plane(1, 1, 1), Shape{1, 1, 1, 0, 1}},
		{"zero dtype", Plane{Width: 1, Height: 1, Data: []byte{1}}, Shape{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeChunk(tt.plane, tt.chunks); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
