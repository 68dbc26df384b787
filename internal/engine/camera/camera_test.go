package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/meshlod/pkg/math"
)

const eps = 1e-4

func TestPositionAndForward(t *testing.T) {
	tests := []struct {
		name    string
		pitch   float32
		yaw     float32
		wantPos math.Vec3
	}{
		{"front", 0, 0, math.Vec3{Z: 10}},
		{"right", 0, math32.Pi / 2, math.Vec3{X: 10}},
		{"above", math32.Pi / 2, 0, math.Vec3{Y: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			c.Distance = 10
			c.Pitch = tt.pitch
			c.Yaw = tt.yaw

			pos := c.Position()
			assert.True(t, pos.ApproxEqual(tt.wantPos, eps), "position %+v", pos)

			// Forward points back at the center.
			fwd := c.Forward()
			assert.InDelta(t, 1, fwd.Length(), eps)
			assert.True(t, pos.Add(fwd.Scale(10)).ApproxEqual(c.Center, eps))
		})
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.Orbit(0, 10)
	assert.Equal(t, c.MaxPitch, c.Pitch)
	c.Orbit(0, -10)
	assert.Equal(t, c.MinPitch, c.Pitch)

	c.Orbit(3*math32.Pi, 0)
	assert.LessOrEqual(t, math32.Abs(c.Yaw), math32.Pi+eps, "yaw stays wrapped")
}

func TestZoomClampsDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 100

	c.Zoom(1)
	assert.InDelta(t, 90, c.Distance, eps)

	for range 200 {
		c.Zoom(1)
	}
	assert.Equal(t, c.MinDistance, c.Distance)

	for range 500 {
		c.Zoom(-1)
	}
	assert.Equal(t, c.MaxDistance, c.Distance)
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	b := math.AABB{Min: math.Vec3{X: -3, Y: -4}, Max: math.Vec3{X: 3, Y: 4}}

	c.FitToBounds(b)

	assert.Equal(t, math.Vec3{}, c.Center)
	// radius 5, sin(30°) = 0.5
	assert.InDelta(t, 10, c.Distance, eps)
	assert.InDelta(t, 10, c.Position().Distance(c.Center), eps)

	before := *c
	c.FitToBounds(math.EmptyAABB())
	assert.Equal(t, before, *c, "empty bounds leave the camera alone")
}

func TestView(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 5}
	v := c.View()

	assert.Equal(t, c.Position(), v.Position)
	assert.Equal(t, c.Forward(), v.Forward)
	assert.Equal(t, c.FOV, v.FOV)
	assert.Equal(t, float32(1080), v.ViewportHeight)
}
