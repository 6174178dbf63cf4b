package zone

import "fmt"

// Backend is the lookup structure behind an Index. Build is called with the
// full zone set on every rebuild; Search appends every zone containing
// (x, y) to dst. Implementations must not retain the slice passed to Build.
type Backend interface {
	Name() string
	Build(zones []*Zone)
	Search(dst []*Zone, x, y float64) []*Zone
}

// Backend names accepted by NewBackend.
const (
	BackendGrid  = "grid"
	BackendRTree = "rtree"
)

// BackendConfig holds tuning for every backend; unused fields are ignored.
type BackendConfig struct {
	CellSize         float64 `yaml:"cell_size"`
	MaxCellsPerZone  int     `yaml:"max_cells_per_zone"`
	RTreeMinChildren int     `yaml:"rtree_min_children"`
	RTreeMaxChildren int     `yaml:"rtree_max_children"`
}

// DefaultBackendConfig returns BackendConfig with sensible defaults.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		CellSize:         256,
		MaxCellsPerZone:  4096,
		RTreeMinChildren: 25,
		RTreeMaxChildren: 50,
	}
}

// NewBackend creates a backend by name. An empty name selects the grid.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	switch name {
	case "", BackendGrid:
		return NewGridBackend(cfg.CellSize, cfg.MaxCellsPerZone), nil
	case BackendRTree:
		return NewRTreeBackend(cfg.RTreeMinChildren, cfg.RTreeMaxChildren), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", name)
	}
}
