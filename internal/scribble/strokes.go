// Package scribble implements the drawing-guess game's server-side pieces:
// the word bank and clue generator, stroke sourcing for AI drawing turns,
// and the AI guess flow.
package scribble

import "math"

// Command is one drawing instruction in the canvas wire format. The schema
// is open-ended (lines, circles, rects, arcs, beziers, polylines share a
// tagged shape keyed by "t"), so commands stay as loose maps end to end.
type Command map[string]any

// Canvas geometry. Quick Draw drawings are 256x256; the room canvas is
// 520x380 with margins so strokes never hug the edges.
const (
	canvasW = 520
	canvasH = 380
	marginX = 30
	marginY = 25

	strokeColor = "#1a1a2e"
	strokeWidth = 3

	// segmentPoints caps polyline length so the frontend animates long
	// strokes progressively; consecutive segments overlap by one point.
	segmentPoints = 6
)

// ConvertDrawing scales a Quick Draw drawing (strokes of parallel x/y
// arrays) onto the room canvas and splits long strokes into short polyline
// segments.
func ConvertDrawing(drawing [][][]float64) []Command {
	drawW := float64(canvasW - marginX*2)
	drawH := float64(canvasH - marginY*2)
	scaleX := func(x float64) int { return int(math.Round(x*drawW/256 + marginX)) }
	scaleY := func(y float64) int { return int(math.Round(y*drawH/256 + marginY)) }

	var out []Command
	for _, stroke := range drawing {
		if len(stroke) < 2 {
			continue
		}
		xs, ys := stroke[0], stroke[1]
		if len(xs) < 2 || len(ys) < len(xs) {
			continue
		}
		pts := make([][2]int, len(xs))
		for i := range xs {
			pts[i] = [2]int{scaleX(xs[i]), scaleY(ys[i])}
		}
		for i := 0; i < len(pts)-1; i += segmentPoints - 1 {
			end := i + segmentPoints
			if end > len(pts) {
				end = len(pts)
			}
			segment := pts[i:end]
			if len(segment) < 2 {
				continue
			}
			out = append(out, Command{
				"t":   "p",
				"pts": segment,
				"c":   strokeColor,
				"w":   strokeWidth,
			})
		}
	}
	return out
}

// hardcodedDrawings are pre-computed programs for words that draw badly from
// the dataset or the model.
var hardcodedDrawings = map[string][]Command{
	"heart": {
		{"t": "b", "x1": 260, "y1": 260, "cx1": 80, "cy1": 120, "cx2": 80, "cy2": 80, "x2": 260, "y2": 150, "c": "#CC0000", "w": 5},
		{"t": "b", "x1": 260, "y1": 150, "cx1": 440, "cy1": 80, "cx2": 440, "cy2": 120, "x2": 260, "y2": 260, "c": "#CC0000", "w": 5},
	},
	"star": {
		{"t": "p", "pts": [][2]int{{260, 60}, {300, 175}, {420, 175}, {320, 245}, {355, 360}, {260, 290}, {165, 360}, {200, 245}, {100, 175}, {220, 175}, {260, 60}}, "c": "#DAA520", "w": 4, "close": true, "fill": "#FFD700"},
	},
	"smiley face": {
		{"t": "c", "x": 260, "y": 190, "r": 130, "c": "#DAA520", "w": 4, "fill": "#FFD700"},
		{"t": "c", "x": 210, "y": 155, "r": 18, "c": "#1a1a1a", "w": 3, "fill": "#1a1a1a"},
		{"t": "c", "x": 310, "y": 155, "r": 18, "c": "#1a1a1a", "w": 3, "fill": "#1a1a1a"},
		{"t": "a", "x": 260, "y": 185, "r": 65, "s": 0.3, "e": 2.84, "c": "#1a1a1a", "w": 5},
	},
}

// questionMark is the last-resort drawing so players at least see that a
// turn happened.
func questionMark() []Command {
	cx, cy := 260, 190
	return []Command{
		{"t": "a", "x": cx, "y": cy - 50, "r": 55, "s": -2.6, "e": 0.2, "c": "#7c6af7", "w": 8},
		{"t": "b", "x1": cx + 52, "y1": cy - 20, "cx1": cx + 58, "cy1": cy + 15, "cx2": cx + 12, "cy2": cy + 25, "x2": cx, "y2": cy + 50, "c": "#7c6af7", "w": 8},
		{"t": "l", "x1": cx, "y1": cy + 55, "x2": cx, "y2": cy + 75, "c": "#7c6af7", "w": 8},
		{"t": "c", "x": cx, "y": cy + 94, "r": 10, "c": "#7c6af7", "w": 2, "fill": "#7c6af7"},
	}
}
