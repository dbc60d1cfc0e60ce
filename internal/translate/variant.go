package translate

// AsMatrix derives a strongly-typed row-major matrix from translated
// pixels. Monochrome cells are single samples; color cells are
// three-sample groups.
func AsMatrix(p Pixels) [][]uint8 {
	rows := make([][]uint8, p.Height)
	rowLen := p.Width * p.Channels
	for y := 0; y < p.Height; y++ {
		row := make([]uint8, rowLen)
		copy(row, p.Data[y*rowLen:(y+1)*rowLen])
		rows[y] = row
	}
	return rows
}

// AsVariant derives a loosely-typed encoding of the same pixels for
// consumers that cannot handle typed arrays. Monochrome cells become
// plain integers; color cells become three-element slices. This is an
// independent derivation from AsMatrix, not a view over it.
func AsVariant(p Pixels) [][]any {
	rows := make([][]any, p.Height)
	for y := 0; y < p.Height; y++ {
		row := make([]any, p.Width)
		for x := 0; x < p.Width; x++ {
			if p.Channels == 1 {
				row[x] = int(p.At(x, y, 0))
				continue
			}
			cell := make([]any, p.Channels)
			for c := 0; c < p.Channels; c++ {
				cell[c] = int(p.At(x, y, c))
			}
			row[x] = cell
		}
		rows[y] = row
	}
	return rows
}
