package render

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrAtlasFull is returned when a chart is requested past the atlas capacity.
	ErrAtlasFull = errors.New("texture atlas is full")
	// ErrChartRange is returned for chart ids outside [0, capacity).
	ErrChartRange = errors.New("chart id out of range")
	// ErrPixelSize is returned when a chart's pixel buffer has the wrong length.
	ErrPixelSize = errors.New("chart pixel buffer has the wrong size")
	// ErrGeometry is returned for non-positive atlas dimensions.
	ErrGeometry = errors.New("invalid atlas geometry")
)

// UVW locates a chart in a layered atlas: normalized texture coordinates of
// its corners and the index of its plane.
type UVW struct {
	U0, U1 float32
	V0, V1 float32
	W      int
}

// Atlas is a stack of equally sized planes, each divided into a grid of
// equally sized charts. Chart ids fill plane 0 row by row, then plane 1 and
// so on. Planes are allocated on first write.
type Atlas struct {
	chartW, chartH int
	planeW, planeH int
	depth          int
	planes         []*image.RGBA
}

// NewAtlas creates an atlas of depth planes holding planeW×planeH charts of
// chartW×chartH pixels each.
func NewAtlas(chartW, chartH, planeW, planeH, depth int) (*Atlas, error) {
	if chartW <= 0 || chartH <= 0 || planeW <= 0 || planeH <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: chart %dx%d, plane %dx%d, depth %d",
			ErrGeometry, chartW, chartH, planeW, planeH, depth)
	}
	return &Atlas{
		chartW: chartW,
		chartH: chartH,
		planeW: planeW,
		planeH: planeH,
		depth:  depth,
		planes: make([]*image.RGBA, depth),
	}, nil
}

// Capacity is the number of charts the atlas can hold.
func (a *Atlas) Capacity() int { return a.planeW * a.planeH * a.depth }

// Width is the width of one plane in pixels.
func (a *Atlas) Width() int { return a.planeW * a.chartW }

// Height is the height of one plane in pixels.
func (a *Atlas) Height() int { return a.planeH * a.chartH }

// Depth is the number of planes.
func (a *Atlas) Depth() int { return a.depth }

// ChartSize returns the chart dimensions in pixels.
func (a *Atlas) ChartSize() (w, h int) { return a.chartW, a.chartH }

func (a *Atlas) locate(id int) (x, y, z int, err error) {
	if id < 0 || id >= a.Capacity() {
		return 0, 0, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrChartRange, id, a.Capacity())
	}
	perPlane := a.planeW * a.planeH
	z = id / perPlane
	rem := id % perPlane
	return rem % a.planeW, rem / a.planeW, z, nil
}

// LoadChart copies chartW×chartH RGBA8 pixels, row major, into chart id.
func (a *Atlas) LoadChart(id int, pixels []byte) error {
	x, y, z, err := a.locate(id)
	if err != nil {
		return err
	}
	rowLen := a.chartW * 4
	if len(pixels) != rowLen*a.chartH {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrPixelSize, len(pixels), rowLen*a.chartH)
	}

	plane := a.planes[z]
	if plane == nil {
		plane = image.NewRGBA(image.Rect(0, 0, a.Width(), a.Height()))
		a.planes[z] = plane
	}
	for row := 0; row < a.chartH; row++ {
		off := plane.PixOffset(x*a.chartW, y*a.chartH+row)
		copy(plane.Pix[off:off+rowLen], pixels[row*rowLen:(row+1)*rowLen])
	}
	return nil
}

// ChartUVW returns the texture coordinates of chart id. U1 and V1 point at
// the last texel of the chart, not one past it.
func (a *Atlas) ChartUVW(id int) (UVW, error) {
	x, y, z, err := a.locate(id)
	if err != nil {
		return UVW{}, err
	}
	w, h := float32(a.Width()), float32(a.Height())
	return UVW{
		U0: float32(x*a.chartW) / w,
		V0: float32(y*a.chartH) / h,
		U1: float32((x+1)*a.chartW-1) / w,
		V1: float32((y+1)*a.chartH-1) / h,
		W:  z,
	}, nil
}

// Plane returns plane z, or nil if nothing has been written to it yet.
func (a *Atlas) Plane(z int) *image.RGBA {
	if z < 0 || z >= a.depth {
		return nil
	}
	return a.planes[z]
}

// Release drops every plane.
func (a *Atlas) Release() {
	for i := range a.planes {
		a.planes[i] = nil
	}
}
