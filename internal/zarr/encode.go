package zarr

import "fmt"

// EncodeChunk serializes a plane as a raw zarr v2 chunk of logical shape
// (1, 1, 1, chunkHeight, chunkWidth): no compressor, C order. A plane smaller
// than the chunk (an edge tile) is placed at the top-left corner and the rest
// of the chunk holds the fill value 0.
func EncodeChunk(p Plane, chunks Shape) ([]byte, error) {
	if chunks[AxisT] != 1 || chunks[AxisC] != 1 || chunks[AxisZ] != 1 {
		return nil, fmt.Errorf("chunk shape %v does not cover a single plane", chunks)
	}
	chunkH, chunkW := chunks[AxisY], chunks[AxisX]
	if chunkH <= 0 || chunkW <= 0 {
		return nil, fmt.Errorf("invalid chunk shape %v", chunks)
	}
	itemSize := p.DType.Size
	if itemSize <= 0 {
		return nil, fmt.Errorf("invalid dtype %v", p.DType)
	}
	if len(p.Data) != p.Width*p.Height*itemSize {
		return nil, fmt.Errorf("plane has %d bytes, expected %d for %dx%d %s",
			len(p.Data), p.Width*p.Height*itemSize, p.Width, p.Height, p.DType.Name())
	}
	if p.Width > chunkW || p.Height > chunkH {
		return nil, fmt.Errorf("plane %dx%d larger than chunk %dx%d", p.Width, p.Height, chunkW, chunkH)
	}

	if p.Width == chunkW && p.Height == chunkH {
		out := make([]byte, len(p.Data))
		copy(out, p.Data)
		return out, nil
	}

	// Fill value 0 is all-zero bytes for every supported dtype.
	out := make([]byte, chunkH*chunkW*itemSize)
	srcRow := p.Width * itemSize
	dstRow := chunkW * itemSize
	for row := 0; row < p.Height; row++ {
		copy(out[row*dstRow:row*dstRow+srcRow], p.Data[row*srcRow:(row+1)*srcRow])
	}
	return out, nil
}
