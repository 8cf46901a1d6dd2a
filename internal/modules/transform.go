package modules

import "jigpipe/internal/album"

// Transform is the platform's affine record, equivalent to the source
// 6-tuple (a b c d tx ty).
type Transform struct {
	ScaleX     float64 `json:"scale_x"`
	SkewY      float64 `json:"skew_y"`
	SkewX      float64 `json:"skew_x"`
	ScaleY     float64 `json:"scale_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// IdentityTransform is the no-op placement.
var IdentityTransform = Transform{ScaleX: 1, ScaleY: 1}

// FromMatrix converts the source 6-tuple into the platform record.
func FromMatrix(m album.Matrix) Transform {
	return Transform{
		ScaleX:     m[0],
		SkewY:      m[1],
		SkewX:      m[2],
		ScaleY:     m[3],
		TranslateX: m[4],
		TranslateY: m[5],
	}
}

// Shape is the platform shape sum: exactly one of Ellipse or Path is set.
type Shape struct {
	Ellipse *EllipseShape `json:"ellipse,omitempty"`
	Path    *PathShape    `json:"path,omitempty"`
}

// EllipseShape is an ellipse described by its bounding box.
type EllipseShape struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PathShape is a closed outline of points.
type PathShape struct {
	Points []PathPoint `json:"points"`
}

// PathPoint is one vertex.
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShapeFromTrace converts source trace geometry into the platform sum.
// Unknown geometry returns ok == false so callers can degrade the slide.
func ShapeFromTrace(trace album.Trace) (Shape, bool) {
	switch trace.Kind {
	case "ellipse":
		if trace.Ellipse == nil {
			return Shape{}, false
		}
		return Shape{Ellipse: &EllipseShape{
			X: trace.Ellipse.X,
			Y: trace.Ellipse.Y,
			W: trace.Ellipse.W,
			H: trace.Ellipse.H,
		}}, true
	case "path":
		points := make([]PathPoint, 0, len(trace.Path))
		for _, p := range trace.Path {
			points = append(points, PathPoint{X: p.X, Y: p.Y})
		}
		return Shape{Path: &PathShape{Points: points}}, true
	default:
		return Shape{}, false
	}
}
