package picking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshlod/internal/engine/camera"
	"github.com/Faultbox/meshlod/internal/stream"
	"github.com/Faultbox/meshlod/pkg/math"
)

func unitBox(center math.Vec3) math.AABB {
	half := math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	return math.AABB{Min: center.Sub(half), Max: center.Add(half)}
}

func TestIntersectAABB(t *testing.T) {
	box := unitBox(math.Vec3{X: 5})

	tests := []struct {
		name  string
		ray   Ray
		hit   bool
		wantT float32
	}{
		{"straight on", Ray{Direction: math.Vec3{X: 1}}, true, 4.5},
		{"pointing away", Ray{Direction: math.Vec3{X: -1}}, false, 0},
		{"parallel outside", Ray{Origin: math.Vec3{Y: 2}, Direction: math.Vec3{X: 1}}, false, 0},
		{"from inside exits", Ray{Origin: math.Vec3{X: 5}, Direction: math.Vec3{X: 1}}, true, 0.5},
		{"diagonal miss", Ray{Direction: math.Vec3{X: 1, Y: 1}.Normalize()}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectAABB(box)
			assert.Equal(t, tt.hit, hit)
			if tt.hit {
				assert.InDelta(t, tt.wantT, got, 1e-5)
			}
		})
	}

	_, hit := Ray{Direction: math.Vec3{X: 1}}.IntersectAABB(math.EmptyAABB())
	assert.False(t, hit)
}

func TestPickChunk(t *testing.T) {
	vm := stream.NewVirtualMesh(stream.DefaultConfig(), nil)
	defer vm.Close()

	far := vm.AddChunk(unitBox(math.Vec3{Z: -10}), 0)
	near := vm.AddChunk(unitBox(math.Vec3{Z: -4}), 0)
	vm.AddChunk(unitBox(math.Vec3{X: 5, Z: -4}), 0)

	cam := camera.NewOrbitCamera()
	cam.Pitch = 0
	cam.Distance = 4
	cam.Center = math.Vec3{Z: -4}
	// Camera sits at the origin looking down -Z.
	require.True(t, cam.Position().ApproxEqual(math.Vec3{}, 1e-5))

	id, dist, ok := PickChunk(vm, CenterRay(cam.View()))
	require.True(t, ok)
	assert.Equal(t, near, id)
	assert.InDelta(t, 3.5, dist, 1e-4)

	cam.Center = math.Vec3{Z: -10}
	cam.Distance = 2
	cam.Orbit(0, 0)
	id, _, ok = PickChunk(vm, CenterRay(cam.View()))
	require.True(t, ok)
	assert.Equal(t, far, id)

	_, _, ok = PickChunk(vm, Ray{Direction: math.Vec3{Y: 1}})
	assert.False(t, ok)
}
