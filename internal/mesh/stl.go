package mesh

import (
	"fmt"
	"io"
	"os"

	"github.com/hschendel/stl"

	"github.com/Faultbox/meshlod/pkg/math"
)

// ReadSTL parses an ASCII or binary STL stream and welds it into a mesh.
func ReadSTL(r io.ReadSeeker, weldEpsilon float32) (*Mesh, error) {
	solid, err := stl.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stl: %w", err)
	}
	return fromSolid(solid, weldEpsilon)
}

// LoadSTL reads and welds an STL file.
func LoadSTL(path string, weldEpsilon float32) (*Mesh, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stl %s: %w", path, err)
	}
	return fromSolid(solid, weldEpsilon)
}

// WriteSTL writes the mesh as a binary STL stream.
func WriteSTL(w io.Writer, m *Mesh, name string) error {
	return toSolid(m, name).WriteAll(w)
}

// SaveSTL writes the mesh to a binary STL file.
func SaveSTL(path string, m *Mesh, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSTL(f, m, name); err != nil {
		f.Close()
		return fmt.Errorf("writing stl %s: %w", path, err)
	}
	return f.Close()
}

func fromSolid(solid *stl.Solid, weldEpsilon float32) (*Mesh, error) {
	if len(solid.Triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	tris := make([][3]math.Vec3, len(solid.Triangles))
	for i, t := range solid.Triangles {
		for j, v := range t.Vertices {
			tris[i][j] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
	}
	return Weld(tris, weldEpsilon), nil
}

func toSolid(m *Mesh, name string) *stl.Solid {
	solid := &stl.Solid{
		Name:      name,
		Triangles: make([]stl.Triangle, m.TriangleCount()),
	}
	for i := range solid.Triangles {
		tri := m.Triangle(i)
		n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Normalize()
		st := &solid.Triangles[i]
		st.Normal[0], st.Normal[1], st.Normal[2] = n.X, n.Y, n.Z
		for j, p := range tri {
			st.Vertices[j][0], st.Vertices[j][1], st.Vertices[j][2] = p.X, p.Y, p.Z
		}
	}
	return solid
}
