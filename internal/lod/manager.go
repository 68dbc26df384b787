package lod

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshlod/internal/logger"
	"github.com/Faultbox/meshlod/internal/mesh"
	"github.com/Faultbox/meshlod/pkg/math"
)

// GroupID identifies a group owned by a Manager.
type GroupID uint32

// Quality levels accepted by SetQualityLevel.
const (
	QualityLow    = 0
	QualityMedium = 1
	QualityHigh   = 2
)

// ManagerConfig holds manager-wide settings.
type ManagerConfig struct {
	// Group is the config given to newly created groups.
	Group Config
	// TriangleBudget is the advisory triangle total across all groups.
	TriangleBudget int
	QualityLevel   int
}

// DefaultManagerConfig returns a ManagerConfig with sensible default values.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Group:          DefaultConfig(),
		TriangleBudget: 1_000_000,
		QualityLevel:   QualityHigh,
	}
}

// ManagerStats is a diagnostic snapshot of a Manager.
type ManagerStats struct {
	GroupCount       int
	CurrentTriangles int
	TriangleBudget   int
	// BudgetUsage is CurrentTriangles/TriangleBudget. It is advisory and may
	// exceed 1; a zero budget reports 0.
	BudgetUsage float32
}

// Manager owns LOD groups and updates them once per frame.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	registry *mesh.Registry
	cfg      ManagerConfig

	groups []*Group
	byID   map[GroupID]int
	nextID GroupID

	currentTriangles int
}

// NewManager creates a manager resolving meshes through reg.
func NewManager(reg *mesh.Registry, cfg ManagerConfig) *Manager {
	m := &Manager{
		registry: reg,
		cfg:      cfg,
		byID:     make(map[GroupID]int),
		nextID:   1,
	}
	m.cfg.QualityLevel = clampQuality(cfg.QualityLevel)
	m.cfg.Group.QualityBias = float32(m.cfg.QualityLevel)
	return m
}

// CreateGroup creates a group with the manager's default group config.
func (m *Manager) CreateGroup() (GroupID, *Group) {
	id := m.nextID
	m.nextID++

	g := newGroup(id, m.registry, m.cfg.Group)
	m.byID[id] = len(m.groups)
	m.groups = append(m.groups, g)
	return id, g
}

// Group looks up a group by id.
func (m *Manager) Group(id GroupID) (*Group, bool) {
	i, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return m.groups[i], true
}

// RemoveGroup destroys a group. The meshes its levels reference are left
// untouched in the registry.
func (m *Manager) RemoveGroup(id GroupID) error {
	i, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, id)
	}

	last := len(m.groups) - 1
	if i != last {
		m.groups[i] = m.groups[last]
		m.byID[m.groups[i].id] = i
	}
	m.groups[last] = nil
	m.groups = m.groups[:last]
	delete(m.byID, id)
	return nil
}

// GroupCount returns the number of live groups.
func (m *Manager) GroupCount() int {
	return len(m.groups)
}

// Update advances every group by dt seconds for a camera at cameraPos and
// recomputes the current triangle total.
func (m *Manager) Update(dt float32, cameraPos math.Vec3) {
	total := 0
	for _, g := range m.groups {
		g.Update(dt, cameraPos, g.ObjectPosition())
		total += g.currentTriangles()
	}

	if m.cfg.TriangleBudget > 0 && total > m.cfg.TriangleBudget && m.currentTriangles <= m.cfg.TriangleBudget {
		logger.Debug("lod triangle budget exceeded",
			zap.Int("triangles", total),
			zap.Int("budget", m.cfg.TriangleBudget))
	}
	m.currentTriangles = total
}

// SetQualityLevel clamps q to [QualityLow, QualityHigh] and passes it to
// every group as QualityBias.
func (m *Manager) SetQualityLevel(q int) {
	q = clampQuality(q)
	m.cfg.QualityLevel = q
	m.cfg.Group.QualityBias = float32(q)
	for _, g := range m.groups {
		g.cfg.QualityBias = float32(q)
	}
	logger.Debug("lod quality level set", zap.Int("quality", q))
}

// QualityLevel returns the clamped quality level.
func (m *Manager) QualityLevel() int {
	return m.cfg.QualityLevel
}

// SetTriangleBudget changes the advisory triangle budget.
func (m *Manager) SetTriangleBudget(budget int) {
	m.cfg.TriangleBudget = budget
}

// Stats returns a diagnostic snapshot.
func (m *Manager) Stats() ManagerStats {
	s := ManagerStats{
		GroupCount:       len(m.groups),
		CurrentTriangles: m.currentTriangles,
		TriangleBudget:   m.cfg.TriangleBudget,
	}
	if m.cfg.TriangleBudget > 0 {
		s.BudgetUsage = float32(m.currentTriangles) / float32(m.cfg.TriangleBudget)
	}
	return s
}

func clampQuality(q int) int {
	return max(QualityLow, min(q, QualityHigh))
}
