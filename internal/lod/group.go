package lod

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// progressEpsilon absorbs float32 drift when dt/duration steps sum to 1.
const progressEpsilon = 1e-5

// Group holds the detail levels of one object and tracks which level is
// shown. Meshes are borrowed through registry handles; the group never owns
// them.
//
// Groups are created by a Manager and are not safe for concurrent use.
type Group struct {
	id       GroupID
	registry *mesh.Registry
	cfg      Config

	levels         []Level
	boundingRadius float32

	current  int
	target   int
	progress float32

	// position offsets the mesh-space bounds center into world space.
	position math.Vec3
}

func newGroup(id GroupID, reg *mesh.Registry, cfg Config) *Group {
	return &Group{
		id:       id,
		registry: reg,
		cfg:      cfg,
		progress: 1,
	}
}

// ID returns the manager-assigned group id.
func (g *Group) ID() GroupID {
	return g.id
}

// Config returns the group's selection settings.
func (g *Group) Config() Config {
	return g.cfg
}

// SetConfig replaces the group's selection settings.
func (g *Group) SetConfig(cfg Config) {
	g.cfg = cfg
}

// AddLevel appends a level covering [minDistance, maxDistance). The first
// level added sets the bounding radius from its mesh bounds.
func (g *Group) AddLevel(h mesh.Handle, minDistance, maxDistance float32) error {
	if len(g.levels) >= MaxLevels {
		return ErrTooManyLODLevels
	}
	m, ok := g.registry.Lookup(h)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMesh, h)
	}
	if err := g.checkRange(minDistance, maxDistance); err != nil {
		return err
	}

	if len(g.levels) == 0 {
		g.boundingRadius = m.Bounds.HalfExtent()
	}
	g.levels = append(g.levels, Level{
		Mesh:          h,
		MinDistance:   minDistance,
		MaxDistance:   maxDistance,
		VertexCount:   m.VertexCount(),
		TriangleCount: m.TriangleCount(),
	})
	return nil
}

// AppendLevel adds a level starting where the previous one ends and ending
// at the configured threshold for its index, or MaxDistance past the last
// threshold.
func (g *Group) AppendLevel(h mesh.Handle) error {
	var minDistance float32
	if n := len(g.levels); n > 0 {
		minDistance = g.levels[n-1].MaxDistance
	}
	maxDistance := g.cfg.MaxDistance
	if i := len(g.levels); i < len(g.cfg.Thresholds) {
		maxDistance = g.cfg.Thresholds[i]
	}
	return g.AddLevel(h, minDistance, maxDistance)
}

// SetBillboard appends a mesh-less quad level from minDistance out to the
// configured MaxDistance.
func (g *Group) SetBillboard(minDistance float32) error {
	if len(g.levels) >= MaxLevels {
		return ErrTooManyLODLevels
	}
	if err := g.checkRange(minDistance, g.cfg.MaxDistance); err != nil {
		return err
	}
	g.levels = append(g.levels, Level{
		Mesh:          mesh.NoMesh,
		MinDistance:   minDistance,
		MaxDistance:   g.cfg.MaxDistance,
		VertexCount:   billboardVertices,
		TriangleCount: billboardTriangles,
		IsBillboard:   true,
	})
	return nil
}

func (g *Group) checkRange(minDistance, maxDistance float32) error {
	if !g.cfg.StrictOrdering {
		return nil
	}
	if minDistance > maxDistance {
		return fmt.Errorf("%w: [%g, %g) is inverted", ErrInvalidRange, minDistance, maxDistance)
	}
	if n := len(g.levels); n > 0 && minDistance < g.levels[n-1].MaxDistance {
		return fmt.Errorf("%w: [%g, %g) overlaps previous level ending at %g",
			ErrInvalidRange, minDistance, maxDistance, g.levels[n-1].MaxDistance)
	}
	return nil
}

// LevelCount returns the number of levels.
func (g *Group) LevelCount() int {
	return len(g.levels)
}

// Level returns level i.
func (g *Group) Level(i int) (Level, bool) {
	if i < 0 || i >= len(g.levels) {
		return Level{}, false
	}
	return g.levels[i], true
}

// BoundingRadius returns the radius derived from the first level's mesh.
func (g *Group) BoundingRadius() float32 {
	return g.boundingRadius
}

// SetPosition sets the world-space offset of the object.
func (g *Group) SetPosition(p math.Vec3) {
	g.position = p
}

// ObjectPosition returns the world-space center used for distance tests:
// the group position plus the first level's mesh bounds center. A first
// level that does not resolve contributes nothing.
func (g *Group) ObjectPosition() math.Vec3 {
	if len(g.levels) == 0 {
		return g.position
	}
	m, ok := g.registry.Lookup(g.levels[0].Mesh)
	if !ok {
		return g.position
	}
	return g.position.Add(m.Bounds.Center())
}

// SelectLOD returns the first level whose range contains the camera
// distance, or the last level when the distance is beyond every range.
func (g *Group) SelectLOD(cameraPos, objectPos math.Vec3) int {
	if !g.cfg.Enabled || len(g.levels) == 0 {
		return 0
	}
	distance := cameraPos.Distance(objectPos)
	for i, l := range g.levels {
		if l.Contains(distance) {
			return i
		}
	}
	return len(g.levels) - 1
}

// SelectLODWithHysteresis is SelectLOD with a dead zone around the current
// level: finer levels need distance < current.min/h, coarser levels need
// distance > current.max*h.
func (g *Group) SelectLODWithHysteresis(cameraPos, objectPos math.Vec3) int {
	selected := g.SelectLOD(cameraPos, objectPos)
	if selected == g.current || g.current >= len(g.levels) {
		return selected
	}

	h := g.cfg.HysteresisFactor
	if h <= 0 {
		h = 1
	}
	cur := g.levels[g.current]
	distance := cameraPos.Distance(objectPos)

	if selected < g.current {
		if distance < cur.MinDistance/h {
			return selected
		}
		return g.current
	}
	if distance > cur.MaxDistance*h {
		return selected
	}
	return g.current
}

// Update retargets the group for this frame and advances any running
// transition by dt seconds.
func (g *Group) Update(dt float32, cameraPos, objectPos math.Vec3) {
	if !g.cfg.Enabled || len(g.levels) == 0 {
		return
	}

	next := g.SelectLODWithHysteresis(cameraPos, objectPos)
	if next != g.target {
		from := g.current
		g.target = next
		if !g.cfg.Transitions || g.cfg.TransitionDuration <= 0 {
			g.current = next
			g.progress = 1
		} else {
			g.progress = 0
		}
		logger.Debug("lod target changed",
			zap.Uint32("group", uint32(g.id)),
			zap.Int("from", from),
			zap.Int("to", next),
			zap.Bool("animated", g.progress < 1))
		return
	}

	if g.progress < 1 {
		g.progress += dt / g.cfg.TransitionDuration
		if g.progress >= 1-progressEpsilon {
			g.progress = 1
			g.current = g.target
		}
	}
}

// CurrentLevel returns the index of the level being shown.
func (g *Group) CurrentLevel() int {
	return g.current
}

// TargetLevel returns the index of the level being blended toward.
func (g *Group) TargetLevel() int {
	return g.target
}

// TransitionBlend returns 0 when fully on the current level and 1 when fully
// on the target level.
func (g *Group) TransitionBlend() float32 {
	return g.progress
}

// IsTransitioning reports whether a blend is in progress.
func (g *Group) IsTransitioning() bool {
	return g.progress < 1
}

// CurrentMesh resolves the current level's mesh. Billboards and released
// meshes report false.
func (g *Group) CurrentMesh() (*mesh.Mesh, bool) {
	return g.levelMesh(g.current)
}

// TargetMesh resolves the target level's mesh.
func (g *Group) TargetMesh() (*mesh.Mesh, bool) {
	return g.levelMesh(g.target)
}

func (g *Group) levelMesh(i int) (*mesh.Mesh, bool) {
	if i >= len(g.levels) {
		return nil, false
	}
	return g.registry.Lookup(g.levels[i].Mesh)
}

// currentTriangles returns the current level's triangle count, 0 when empty.
func (g *Group) currentTriangles() int {
	if g.current >= len(g.levels) {
		return 0
	}
	return g.levels[g.current].TriangleCount
}

// Stats returns a diagnostic snapshot.
func (g *Group) Stats() GroupStats {
	s := GroupStats{
		LevelCount:         len(g.levels),
		CurrentLevel:       g.current,
		TargetLevel:        g.target,
		TransitionProgress: g.progress,
		Transitioning:      g.IsTransitioning(),
		BoundingRadius:     g.boundingRadius,
	}
	if g.current < len(g.levels) {
		l := g.levels[g.current]
		s.CurrentVertices = l.VertexCount
		s.CurrentTriangles = l.TriangleCount
		s.IsBillboard = l.IsBillboard
	}
	return s
}
