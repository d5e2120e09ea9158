package store

// DataStore is the interface for snapshot writers. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering, committed in one
// transaction) implement this interface.
type DataStore interface {
	// Snapshot inserts. Each returns the assigned ID.
	InsertModule(m *Module) (int64, error)
	InsertModuleEdge(e *ModuleEdge) (int64, error)
	InsertDeclaration(d *Declaration) (int64, error)
	InsertTypeParam(tp *TypeParam) (int64, error)
	InsertSupertype(st *Supertype) (int64, error)
	InsertParam(p *Param) (int64, error)

	// Lookups used by writers to skip modules that are already stored.
	ModuleByName(name string) (*Module, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
