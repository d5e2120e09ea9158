package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive) IDs, and all FK references within the batch are rewritten
// using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Modules
//  2. ModuleEdges (depend on module_id)
//  3. Declarations (depend on module_id, parent_id)
//  4. TypeParams, Supertypes, Params (depend on decl_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	return s.ReplaceModules(nil, batch)
}

// ReplaceModules deletes the named modules and then commits each batch, all
// within one transaction. A module named in deletes may be written again
// by a batch.
func (s *Store) ReplaceModules(deletes []string, batches ...*BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, name := range deletes {
		if err := deleteModule(tx, name); err != nil {
			return err
		}
	}
	for _, batch := range batches {
		if err := commitBatch(tx, batch); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func commitBatch(tx *sql.Tx, batch *BatchedStore) error {
	fakeToReal := make(map[int64]int64)
	remap := func(id int64) int64 {
		if id < 0 {
			return fakeToReal[id]
		}
		return id
	}

	// 1. Modules
	for _, m := range batch.Modules {
		realID, err := insertModule(tx, &m)
		if err != nil {
			return fmt.Errorf("commit batch: module %q: %w", m.Name, err)
		}
		fakeToReal[m.ID] = realID
	}

	// 2. ModuleEdges
	for _, e := range batch.ModuleEdges {
		e.ModuleID = remap(e.ModuleID)
		if _, err := insertModuleEdge(tx, &e); err != nil {
			return fmt.Errorf("commit batch: module edge %q: %w", e.Target, err)
		}
	}

	// 3. Declarations. Parents are always buffered before their members.
	for _, d := range batch.Declarations {
		d.ModuleID = remap(d.ModuleID)
		if d.ParentID != nil && *d.ParentID < 0 {
			realID := fakeToReal[*d.ParentID]
			d.ParentID = &realID
		}
		realID, err := insertDeclaration(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: declaration %q: %w", d.QualifiedName, err)
		}
		fakeToReal[d.ID] = realID
	}

	// 4. Per-declaration detail rows
	for _, tp := range batch.TypeParams {
		tp.DeclID = remap(tp.DeclID)
		if _, err := insertTypeParam(tx, &tp); err != nil {
			return fmt.Errorf("commit batch: type param %q: %w", tp.Name, err)
		}
	}
	for _, st := range batch.Supertypes {
		st.DeclID = remap(st.DeclID)
		if _, err := insertSupertype(tx, &st); err != nil {
			return fmt.Errorf("commit batch: supertype: %w", err)
		}
	}
	for _, p := range batch.Params {
		p.DeclID = remap(p.DeclID)
		if _, err := insertParam(tx, &p); err != nil {
			return fmt.Errorf("commit batch: param %q: %w", p.Name, err)
		}
	}
	return nil
}
