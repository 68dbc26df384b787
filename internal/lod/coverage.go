package lod

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshlod/pkg/math"
)

// CalculateScreenCoverage estimates the fraction of the viewport height
// covered by a sphere of the given radius. fov is the vertical field of view
// in radians. A camera inside the sphere reports full coverage.
//
// Selection uses distance only; coverage is exposed for callers that want a
// screen-space policy.
func CalculateScreenCoverage(radius float32, cameraPos, objectPos math.Vec3, fov, screenHeight float32) float32 {
	if screenHeight <= 0 || fov <= 0 {
		return 0
	}
	distance := cameraPos.Distance(objectPos)
	if distance <= radius {
		return 1
	}
	projected := radius * 2 * screenHeight / (distance * 2 * math32.Tan(fov/2))
	return projected / screenHeight
}

// ScreenCoverage is CalculateScreenCoverage with the group's bounding radius.
func (g *Group) ScreenCoverage(cameraPos, objectPos math.Vec3, fov, screenHeight float32) float32 {
	return CalculateScreenCoverage(g.boundingRadius, cameraPos, objectPos, fov, screenHeight)
}
