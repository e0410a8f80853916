package codec

// The instrument writes each frame as height rows of width samples. For
// display the two axes are swapped and the new row axis is reversed, so a
// display frame has width rows of height samples:
//
//	display[i][j] = disk[j][width-1-i]

// toDisplay reorients one on-disk frame (height x width) into dst (width x height).
func toDisplay(dst, disk []float64, height, width int) {
	for i := 0; i < width; i++ {
		src := width - 1 - i
		row := dst[i*height : (i+1)*height]
		for j := range row {
			row[j] = disk[j*width+src]
		}
	}
}

// toDisk is the exact inverse of toDisplay: display (width x height) into
// dst (height x width).
func toDisk(dst, display []float64, height, width int) {
	for r := 0; r < height; r++ {
		row := dst[r*width : (r+1)*width]
		for c := range row {
			row[c] = display[(width-1-c)*height+r]
		}
	}
}
