package store

import (
	"database/sql"
	"fmt"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// --- Inserts ---

func (s *Store) InsertModule(m *Module) (int64, error) {
	id, err := insertModule(s.db, m)
	if err != nil {
		return 0, fmt.Errorf("insert module %q: %w", m.Name, err)
	}
	m.ID = id
	return id, nil
}

func (s *Store) InsertModuleEdge(e *ModuleEdge) (int64, error) {
	id, err := insertModuleEdge(s.db, e)
	if err != nil {
		return 0, fmt.Errorf("insert module edge %q: %w", e.Target, err)
	}
	e.ID = id
	return id, nil
}

func (s *Store) InsertDeclaration(d *Declaration) (int64, error) {
	id, err := insertDeclaration(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert declaration %q: %w", d.QualifiedName, err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) InsertTypeParam(tp *TypeParam) (int64, error) {
	id, err := insertTypeParam(s.db, tp)
	if err != nil {
		return 0, fmt.Errorf("insert type param %q: %w", tp.Name, err)
	}
	tp.ID = id
	return id, nil
}

func (s *Store) InsertSupertype(st *Supertype) (int64, error) {
	id, err := insertSupertype(s.db, st)
	if err != nil {
		return 0, fmt.Errorf("insert supertype: %w", err)
	}
	st.ID = id
	return id, nil
}

func (s *Store) InsertParam(p *Param) (int64, error) {
	id, err := insertParam(s.db, p)
	if err != nil {
		return 0, fmt.Errorf("insert param %q: %w", p.Name, err)
	}
	p.ID = id
	return id, nil
}

func insertModule(x execer, m *Module) (int64, error) {
	res, err := x.Exec(`INSERT INTO modules (name, ordinal) VALUES (?, ?)`, m.Name, m.Ordinal)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertModuleEdge(x execer, e *ModuleEdge) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO module_edges (module_id, target, kind, ordinal) VALUES (?, ?, ?, ?)`,
		e.ModuleID, e.Target, e.Kind, e.Ordinal,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDeclaration(x execer, d *Declaration) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO declarations (module_id, parent_id, decl_key, name, qualified_name, package,
			kind, origin, visibility, modality, modifiers, ordinal,
			type_json, receiver_json, jvm_name, annotations_json, throws_json, default_json, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ModuleID, d.ParentID, d.Key, d.Name, d.QualifiedName, d.Package,
		d.Kind, d.Origin, d.Visibility, d.Modality, marshalModifiers(d.Modifiers), d.Ordinal,
		nullString(d.TypeJSON), nullString(d.ReceiverJSON), nullString(d.JvmName),
		nullString(d.AnnotationsJSON), nullString(d.ThrowsJSON), nullString(d.DefaultJSON), nullString(d.SignatureHash),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertTypeParam(x execer, tp *TypeParam) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO type_params (decl_id, ordinal, name, variance, reified, bounds_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tp.DeclID, tp.Ordinal, tp.Name, tp.Variance, tp.Reified, nullString(tp.BoundsJSON),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertSupertype(x execer, st *Supertype) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO supertypes (decl_id, ordinal, type_json) VALUES (?, ?, ?)`,
		st.DeclID, st.Ordinal, st.TypeJSON,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertParam(x execer, p *Param) (int64, error) {
	res, err := x.Exec(
		`INSERT INTO params (decl_id, ordinal, name, type_json, vararg, has_default, default_json, annotations_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.DeclID, p.Ordinal, p.Name, nullString(p.TypeJSON), p.Vararg, p.HasDefault,
		nullString(p.DefaultJSON), nullString(p.AnnotationsJSON),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// --- Reads ---

// Modules returns every stored module ordered by ordinal.
func (s *Store) Modules() ([]*Module, error) {
	rows, err := s.db.Query("SELECT id, name, ordinal FROM modules ORDER BY ordinal, id")
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	var out []*Module
	for rows.Next() {
		m := &Module{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Ordinal); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ModuleByName returns the module with the given name, or nil if absent.
func (s *Store) ModuleByName(name string) (*Module, error) {
	m := &Module{}
	err := s.db.QueryRow("SELECT id, name, ordinal FROM modules WHERE name = ?", name).
		Scan(&m.ID, &m.Name, &m.Ordinal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query module %q: %w", name, err)
	}
	return m, nil
}

// ModuleEdges returns the dependency and friend edges of a module in
// declaration order.
func (s *Store) ModuleEdges(moduleID int64) ([]*ModuleEdge, error) {
	rows, err := s.db.Query(
		"SELECT id, module_id, target, kind, ordinal FROM module_edges WHERE module_id = ? ORDER BY ordinal, id",
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query module edges: %w", err)
	}
	defer rows.Close()

	var out []*ModuleEdge
	for rows.Next() {
		e := &ModuleEdge{}
		if err := rows.Scan(&e.ID, &e.ModuleID, &e.Target, &e.Kind, &e.Ordinal); err != nil {
			return nil, fmt.Errorf("scan module edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const declarationColumns = `id, module_id, parent_id, decl_key, name, qualified_name, package,
	kind, origin, visibility, modality, modifiers, ordinal,
	type_json, receiver_json, jvm_name, annotations_json, throws_json, default_json, signature_hash`

func scanDeclaration(sc interface{ Scan(...any) error }) (*Declaration, error) {
	d := &Declaration{}
	var parentID sql.NullInt64
	var mods, typ, recv, jvm, anns, throws, def, hash sql.NullString
	err := sc.Scan(&d.ID, &d.ModuleID, &parentID, &d.Key, &d.Name, &d.QualifiedName, &d.Package,
		&d.Kind, &d.Origin, &d.Visibility, &d.Modality, &mods, &d.Ordinal,
		&typ, &recv, &jvm, &anns, &throws, &def, &hash)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		d.ParentID = &parentID.Int64
	}
	d.Modifiers = unmarshalModifiers(mods.String)
	d.TypeJSON = typ.String
	d.ReceiverJSON = recv.String
	d.JvmName = jvm.String
	d.AnnotationsJSON = anns.String
	d.ThrowsJSON = throws.String
	d.DefaultJSON = def.String
	d.SignatureHash = hash.String
	return d, nil
}

// DeclarationsByModule returns every declaration of a module, parents
// before children, siblings in declaration order.
func (s *Store) DeclarationsByModule(moduleID int64) ([]*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT "+declarationColumns+" FROM declarations WHERE module_id = ? ORDER BY id",
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	var out []*Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeclarationsByQualifiedName returns every stored declaration with the
// given qualified name across all modules.
func (s *Store) DeclarationsByQualifiedName(qname string) ([]*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT "+declarationColumns+" FROM declarations WHERE qualified_name = ? ORDER BY id",
		qname,
	)
	if err != nil {
		return nil, fmt.Errorf("query declarations by name: %w", err)
	}
	defer rows.Close()

	var out []*Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TypeParamsByDecl returns the type parameters of a declaration in order.
func (s *Store) TypeParamsByDecl(declID int64) ([]*TypeParam, error) {
	rows, err := s.db.Query(
		"SELECT id, decl_id, ordinal, name, variance, reified, bounds_json FROM type_params WHERE decl_id = ? ORDER BY ordinal",
		declID,
	)
	if err != nil {
		return nil, fmt.Errorf("query type params: %w", err)
	}
	defer rows.Close()

	var out []*TypeParam
	for rows.Next() {
		tp := &TypeParam{}
		var bounds sql.NullString
		if err := rows.Scan(&tp.ID, &tp.DeclID, &tp.Ordinal, &tp.Name, &tp.Variance, &tp.Reified, &bounds); err != nil {
			return nil, fmt.Errorf("scan type param: %w", err)
		}
		tp.BoundsJSON = bounds.String
		out = append(out, tp)
	}
	return out, rows.Err()
}

// SupertypesByDecl returns the declared supertypes of a declaration in order.
func (s *Store) SupertypesByDecl(declID int64) ([]*Supertype, error) {
	rows, err := s.db.Query(
		"SELECT id, decl_id, ordinal, type_json FROM supertypes WHERE decl_id = ? ORDER BY ordinal",
		declID,
	)
	if err != nil {
		return nil, fmt.Errorf("query supertypes: %w", err)
	}
	defer rows.Close()

	var out []*Supertype
	for rows.Next() {
		st := &Supertype{}
		if err := rows.Scan(&st.ID, &st.DeclID, &st.Ordinal, &st.TypeJSON); err != nil {
			return nil, fmt.Errorf("scan supertype: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ParamsByDecl returns the value parameters of a declaration in order.
func (s *Store) ParamsByDecl(declID int64) ([]*Param, error) {
	rows, err := s.db.Query(
		`SELECT id, decl_id, ordinal, name, type_json, vararg, has_default, default_json, annotations_json
		 FROM params WHERE decl_id = ? ORDER BY ordinal`,
		declID,
	)
	if err != nil {
		return nil, fmt.Errorf("query params: %w", err)
	}
	defer rows.Close()

	var out []*Param
	for rows.Next() {
		p := &Param{}
		var typ, def, anns sql.NullString
		if err := rows.Scan(&p.ID, &p.DeclID, &p.Ordinal, &p.Name, &typ, &p.Vararg, &p.HasDefault, &def, &anns); err != nil {
			return nil, fmt.Errorf("scan param: %w", err)
		}
		p.TypeJSON = typ.String
		p.DefaultJSON = def.String
		p.AnnotationsJSON = anns.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// ModuleSignatures returns the stored signature hash of every declaration
// in the named module, keyed by declaration key. A missing module yields
// an empty map.
func (s *Store) ModuleSignatures(name string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT d.decl_key, d.signature_hash FROM declarations d
		 JOIN modules m ON m.id = d.module_id WHERE m.name = ?`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("query module signatures: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var hash sql.NullString
		if err := rows.Scan(&key, &hash); err != nil {
			return nil, fmt.Errorf("scan signature hash: %w", err)
		}
		out[key] = hash.String
	}
	return out, rows.Err()
}
