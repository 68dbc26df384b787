package mesh

// Handle identifies a mesh held by a Registry. The zero value is NoMesh.
type Handle uint32

// NoMesh is the handle of an absent mesh (billboard levels use it).
const NoMesh Handle = 0

// Registry owns meshes and hands out handles to them. LOD levels keep
// handles rather than pointers, so releasing a mesh never leaves a dangling
// reference: lookups of a released handle simply fail.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	meshes map[Handle]*Mesh
	next   Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		meshes: make(map[Handle]*Mesh),
		next:   1,
	}
}

// Register stores m and returns its handle.
func (r *Registry) Register(m *Mesh) Handle {
	h := r.next
	r.next++
	r.meshes[h] = m
	return h
}

// Lookup resolves a handle.
func (r *Registry) Lookup(h Handle) (*Mesh, bool) {
	if h == NoMesh {
		return nil, false
	}
	m, ok := r.meshes[h]
	return m, ok
}

// Release drops the mesh behind h. Handles are never reused.
func (r *Registry) Release(h Handle) error {
	if _, ok := r.meshes[h]; !ok {
		return ErrUnknownHandle
	}
	delete(r.meshes, h)
	return nil
}

// Len returns the number of registered meshes.
func (r *Registry) Len() int {
	return len(r.meshes)
}
