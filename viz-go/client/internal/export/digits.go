package export

// Stroke-drawn sample digits on the 28x28 input grid, for trying the
// prediction surface without drawing by hand.

func blankGrid() []float64 {
	return make([]float64, 28*28)
}

func setPixel(grid []float64, x, y int) {
	if x < 0 || x > 27 || y < 0 || y > 27 {
		return
	}
	grid[y*28+x] = 1
}

func drawLine(grid []float64, x1, y1, x2, y2 int) {
	steps := abs(x2 - x1)
	if dy := abs(y2 - y1); dy > steps {
		steps = dy
	}
	if steps == 0 {
		setPixel(grid, x1, y1)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x1 + round(float64((x2-x1)*i)/float64(steps))
		y := y1 + round(float64((y2-y1)*i)/float64(steps))
		setPixel(grid, x, y)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round(v float64) int {
	if v < 0 {
		return -int(-v + 0.5)
	}
	return int(v + 0.5)
}

type stroke struct {
	x1, y1, x2, y2 int
}

var digitStrokes = map[int][]stroke{
	0: {{8, 6, 20, 6}, {8, 22, 20, 22}, {8, 6, 8, 22}, {20, 6, 20, 22}},
	1: {{14, 6, 14, 22}, {11, 9, 14, 6}},
	2: {{8, 7, 20, 7}, {20, 7, 20, 14}, {8, 14, 20, 14}, {8, 14, 8, 22}, {8, 22, 20, 22}},
	3: {{8, 7, 20, 7}, {20, 7, 20, 22}, {8, 14, 20, 14}, {8, 22, 20, 22}},
	4: {{8, 6, 8, 14}, {8, 14, 20, 14}, {20, 6, 20, 22}},
	5: {{8, 6, 20, 6}, {8, 6, 8, 14}, {8, 14, 20, 14}, {20, 14, 20, 22}, {8, 22, 20, 22}},
	6: {{8, 6, 8, 22}, {8, 6, 20, 6}, {8, 14, 20, 14}, {20, 14, 20, 22}, {8, 22, 20, 22}},
	7: {{8, 6, 20, 6}, {20, 6, 12, 22}},
	8: {{8, 6, 20, 6}, {8, 14, 20, 14}, {8, 22, 20, 22}, {8, 6, 8, 22}, {20, 6, 20, 22}},
	9: {{8, 6, 20, 6}, {8, 6, 8, 14}, {8, 14, 20, 14}, {20, 6, 20, 22}},
}

// SampleDigit returns a 784-pixel grid with the given digit stroked onto it,
// or nil for anything outside 0..9.
func SampleDigit(digit int) []float64 {
	strokes, ok := digitStrokes[digit]
	if !ok {
		return nil
	}
	grid := blankGrid()
	for _, s := range strokes {
		drawLine(grid, s.x1, s.y1, s.x2, s.y2)
	}
	return grid
}
