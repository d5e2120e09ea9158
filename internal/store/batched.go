package store

import "sync"

// BatchedStore buffers snapshot inserts in memory using fake (negative)
// IDs. It implements DataStore so snapshot writers can write to it
// without knowing whether they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// ModuleByName is passed through to the underlying Store.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Modules      []Module
	ModuleEdges  []ModuleEdge
	Declarations []Declaration
	TypeParams   []TypeParam
	Supertypes   []Supertype
	Params       []Param

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertModule(m *Module) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	m.ID = fakeID
	b.Modules = append(b.Modules, *m)
	return fakeID, nil
}

func (b *BatchedStore) InsertModuleEdge(e *ModuleEdge) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	e.ID = fakeID
	b.ModuleEdges = append(b.ModuleEdges, *e)
	return fakeID, nil
}

func (b *BatchedStore) InsertDeclaration(d *Declaration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Declarations = append(b.Declarations, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertTypeParam(tp *TypeParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	tp.ID = fakeID
	b.TypeParams = append(b.TypeParams, *tp)
	return fakeID, nil
}

func (b *BatchedStore) InsertSupertype(st *Supertype) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	st.ID = fakeID
	b.Supertypes = append(b.Supertypes, *st)
	return fakeID, nil
}

func (b *BatchedStore) InsertParam(p *Param) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	p.ID = fakeID
	b.Params = append(b.Params, *p)
	return fakeID, nil
}

// ModuleByName checks buffered modules first, then the underlying store.
func (b *BatchedStore) ModuleByName(name string) (*Module, error) {
	b.mu.Lock()
	for i := range b.Modules {
		if b.Modules[i].Name == name {
			m := b.Modules[i]
			b.mu.Unlock()
			return &m, nil
		}
	}
	b.mu.Unlock()
	return b.store.ModuleByName(name)
}
