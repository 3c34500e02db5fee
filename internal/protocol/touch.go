package protocol

// Locate maps a touch coordinate on the glass to the display under it and,
// for the center display, the key index (row major, 0..11). key is -1 on
// the side strips and outside the key grid.
func Locate(x, y int) (d Display, key int) {
	switch {
	case x < StripWidth:
		return DisplayLeft, -1
	case x >= StripWidth+CenterWidth:
		return DisplayRight, -1
	}
	col := (x - StripWidth) / KeySize
	row := y / KeySize
	if y < 0 || row >= KeyRows {
		return DisplayCenter, -1
	}
	return DisplayCenter, col + row*KeyColumns
}

// KeyOrigin returns the top-left pixel of key i on the center display.
func KeyOrigin(i int) (x, y int) {
	return (i % KeyColumns) * KeySize, (i / KeyColumns) * KeySize
}
