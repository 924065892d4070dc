package domain

// ElementKind enumerates kinds of elements a backend can detect in an image.
type ElementKind string

const (
	ElementFace       ElementKind = "face"
	ElementProduct    ElementKind = "product"
	ElementText       ElementKind = "text"
	ElementLogo       ElementKind = "logo"
	ElementPerson     ElementKind = "person"
	ElementBackground ElementKind = "background"
	ElementOther      ElementKind = "other"
)

// Region is a bounding box in normalized coordinates relative to the
// source image: x, y, w, h all in [0, 1].
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the normalized area of the region.
func (r Region) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Centroid returns the region's center point in normalized coordinates.
func (r Region) Centroid() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Intersect returns the overlapping region, which may be empty.
func (r Region) Intersect(o Region) Region {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.W, o.X+o.W)
	y2 := min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return Region{}
	}
	return Region{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Union returns the smallest region covering both.
func (r Region) Union(o Region) Region {
	if r.Area() == 0 {
		return o
	}
	if o.Area() == 0 {
		return r
	}
	x1 := min(r.X, o.X)
	y1 := min(r.Y, o.Y)
	x2 := max(r.X+r.W, o.X+o.W)
	y2 := max(r.Y+r.H, o.Y+o.H)
	return Region{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// DetectedElement is raw detector output for one element.
type DetectedElement struct {
	Kind        ElementKind `json:"kind"`
	Region      Region      `json:"region"`
	Confidence  float64     `json:"confidence"`
	Description string      `json:"description,omitempty"`
}

// ClassifiedElement is a detected element after rule-weighted ranking.
type ClassifiedElement struct {
	DetectedElement
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Dimensions carries pixel dimensions of an image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectRatio returns width over height, or 0 when degenerate.
func (d Dimensions) AspectRatio() float64 {
	if d.Height <= 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}
