package image

// MipExtent returns the width and height of the given mip level.
//
// Each level is half the size of the previous one in both dimensions,
// clamped to 1. Level 0 is the base level.
func MipExtent(width, height, level int) (int, int) {
	if level <= 0 {
		return width, height
	}
	return max(1, width>>level), max(1, height>>level)
}

// MipLevel locates one mip level inside a level-major payload.
//
// A level-major payload stores every layer of level 0, then every layer of
// level 1, and so on. Baked caches are stored this way.
type MipLevel struct {
	Level      int
	Width      int
	Height     int
	Offset     int // byte offset of the level's first layer
	LayerBytes int // bytes of a single layer at this level
}

// Levels returns the position of every mip level in a level-major payload.
func (s ContainerShape) Levels() []MipLevel {
	levels := make([]MipLevel, s.MipCount)
	offset := 0
	for i := range levels {
		w, h := MipExtent(s.Width, s.Height, i)
		layer := s.Format.ImageBytes(w, h) * s.Depth
		levels[i] = MipLevel{
			Level:      i,
			Width:      w,
			Height:     h,
			Offset:     offset,
			LayerBytes: layer,
		}
		offset += layer * s.Layers()
	}
	return levels
}

// Layer returns the bytes of one layer of this level within payload.
// Returns nil if layer is negative or the layer lies past the end of payload.
func (m MipLevel) Layer(payload []byte, layer int) []byte {
	if layer < 0 {
		return nil
	}
	start := m.Offset + layer*m.LayerBytes
	end := start + m.LayerBytes
	if end > len(payload) {
		return nil
	}
	return payload[start:end]
}
