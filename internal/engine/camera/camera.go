// Package camera provides the orbit camera that drives LOD selection and
// chunk streaming.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/pkg/math"
)

// View is the per-frame camera state consumed by the LOD manager and the
// virtual mesh.
type View struct {
	Position math.Vec3
	Forward  math.Vec3
	// FOV is the vertical field of view in radians.
	FOV            float32
	ViewportHeight float32
}

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32 // radians above the horizon
	Yaw      float32 // radians around Y

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	FOV            float32
	ViewportHeight float32

	ZoomSensitivity float32
}

// NewOrbitCamera creates an orbit camera with a 60 degree field of view on a
// 1080 pixel viewport.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        200.0,
		Pitch:           0.5,
		MinDistance:     1.0,
		MaxDistance:     5000.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		FOV:             math32.Pi / 3,
		ViewportHeight:  1080,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinP, cosP := math32.Sincos(c.Pitch)
	sinY, cosY := math32.Sincos(c.Yaw)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cosP * sinY,
		Y: c.Distance * sinP,
		Z: c.Distance * cosP * cosY,
	})
}

// Forward returns the unit direction from the camera to its center.
func (c *OrbitCamera) Forward() math.Vec3 {
	sinP, cosP := math32.Sincos(c.Pitch)
	sinY, cosY := math32.Sincos(c.Yaw)
	return math.Vec3{X: -cosP * sinY, Y: -sinP, Z: -cosP * cosY}
}

// Orbit rotates the camera around its center, clamping pitch.
func (c *OrbitCamera) Orbit(dYaw, dPitch float32) {
	c.Yaw = math32.Remainder(c.Yaw+dYaw, 2*math32.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, c.MinPitch, c.MaxPitch)
}

// Zoom scales the distance by the zoom sensitivity; positive delta moves in.
func (c *OrbitCamera) Zoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// SetDistance sets the distance within the configured limits.
func (c *OrbitCamera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on b at a distance where the bounding sphere
// fills the field of view.
func (c *OrbitCamera) FitToBounds(b math.AABB) {
	if b.IsEmpty() {
		return
	}
	c.Center = b.Center()

	radius := b.Size().Length() / 2
	dist := radius / math32.Sin(c.FOV/2)
	if dist < c.MinDistance {
		dist = c.MinDistance
	}
	if dist*4 > c.MaxDistance {
		c.MaxDistance = dist * 4
	}
	c.Distance = dist

	c.Pitch = 0.6 // ~35 degrees down
	c.Yaw = 0
}

// View returns the current frame's view.
func (c *OrbitCamera) View() View {
	return View{
		Position:       c.Position(),
		Forward:        c.Forward(),
		FOV:            c.FOV,
		ViewportHeight: c.ViewportHeight,
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
