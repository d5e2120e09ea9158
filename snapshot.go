package trellis

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	"github.com/jward/trellis/internal/store"
	"github.com/jward/trellis/internal/types"
)

// Snapshot metadata keys.
const (
	metaGraphID      = "graph_id"
	metaSnapshotHash = "snapshot_hash"
)

// SaveReport summarizes a Save.
type SaveReport struct {
	Modules      int
	Declarations int
	// Changed lists modules whose declaration signatures differ from the
	// previous snapshot, new modules included.
	Changed []string
	// Removed lists stored modules that are no longer in the graph.
	Removed []string
	// Affected lists modules that depend, directly or transitively, on a
	// changed or removed module.
	Affected []string
	Hash     string
}

// Save writes the graph to a SQLite snapshot at dbPath. Every module is
// replaced in full and stored modules absent from the graph are deleted,
// all in one transaction. Builtins and synthesized members are not stored;
// they are regenerated on Open.
func (e *Engine) Save(dbPath string) (*SaveReport, error) {
	logger := tlog.Section(e.logger, tlog.SectionStore)
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return nil, err
	}

	batches, err := e.snapshotBatches(s)
	if err != nil {
		return nil, err
	}

	report := &SaveReport{Hash: snapshotHash(batches)}
	var deletes []string
	for _, batch := range batches {
		name := batch.Modules[0].Name
		prev, err := s.ModuleByName(name)
		if err != nil {
			return nil, err
		}
		old, err := s.ModuleSignatures(name)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			deletes = append(deletes, name)
		}
		report.Modules++
		report.Declarations += len(batch.Declarations)
		if prev == nil || !sameSignatures(old, batch.Declarations) {
			report.Changed = append(report.Changed, name)
		}
	}

	stored, err := s.Modules()
	if err != nil {
		return nil, err
	}
	for _, m := range stored {
		if e.graph.Module(m.Name) == nil {
			report.Removed = append(report.Removed, m.Name)
			deletes = append(deletes, m.Name)
		}
	}

	// Dependents of a removed module are found through the old edges.
	affected := set.New[string](0)
	if len(report.Removed) > 0 {
		names, err := s.BlastRadius(report.Removed)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if e.graph.Module(name) != nil {
				affected.Insert(name)
			}
		}
	}

	if err := s.ReplaceModules(deletes, batches...); err != nil {
		return nil, errors.Wrap(err, "saving modules")
	}
	if len(report.Changed) > 0 {
		names, err := s.BlastRadius(report.Changed)
		if err != nil {
			return nil, err
		}
		affected.InsertSlice(names)
	}
	if affected.Size() > 0 {
		report.Affected = affected.Slice()
		sort.Strings(report.Affected)
	}

	if err := s.SetMetadata(metaGraphID, e.graph.ID); err != nil {
		return nil, err
	}
	if err := s.SetMetadata(metaSnapshotHash, report.Hash); err != nil {
		return nil, err
	}
	logger.Info("snapshot saved", "path", dbPath, "modules", report.Modules,
		"declarations", report.Declarations, "changed", len(report.Changed),
		"removed", len(report.Removed))
	return report, nil
}

// SnapshotChanged reports whether the graph differs from the snapshot at
// dbPath. A missing database counts as changed.
func (e *Engine) SnapshotChanged(dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return true, nil
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return false, err
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return false, err
	}
	stored, err := s.GetMetadata(metaSnapshotHash)
	if err != nil {
		return false, err
	}
	batches, err := e.snapshotBatches(nil)
	if err != nil {
		return false, err
	}
	return stored != snapshotHash(batches), nil
}

func sameSignatures(old map[string]string, rows []store.Declaration) bool {
	if len(old) != len(rows) {
		return false
	}
	for _, d := range rows {
		if old[d.Key] != d.SignatureHash {
			return false
		}
	}
	return true
}

// snapshotHash fingerprints every module's declaration signatures.
func snapshotHash(batches []*store.BatchedStore) string {
	h := sha256.New()
	for _, b := range batches {
		fmt.Fprintf(h, "module:%s\n", b.Modules[0].Name)
		for _, e := range b.ModuleEdges {
			fmt.Fprintf(h, "edge:%s:%s\n", e.Kind, e.Target)
		}
		lines := make([]string, len(b.Declarations))
		for i, d := range b.Declarations {
			lines[i] = d.Key + ":" + d.SignatureHash + ":" + d.AnnotationsJSON
		}
		sort.Strings(lines)
		for _, l := range lines {
			fmt.Fprintf(h, "%s\n", l)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// snapshotBatches encodes every non-builtin module into its own batch. s
// backs read passthrough only and may be nil.
func (e *Engine) snapshotBatches(s *store.Store) ([]*store.BatchedStore, error) {
	var out []*store.BatchedStore
	ordinal := 0
	for _, m := range e.graph.Modules() {
		if m.Name == graph.BuiltinsModule {
			continue
		}
		batch := store.NewBatchedStore(s)
		w := &snapshotWriter{batch: batch, logger: tlog.Section(e.logger, tlog.SectionStore)}
		if err := w.writeModule(m, ordinal); err != nil {
			return nil, errors.Wrapf(err, "encoding module %s", m.Name)
		}
		ordinal++
		out = append(out, batch)
	}
	return out, nil
}

// --- encoding ---

type snapshotWriter struct {
	batch  store.DataStore
	logger *slog.Logger
}

func (w *snapshotWriter) writeModule(m *graph.Module, ordinal int) error {
	row := &store.Module{Name: m.Name, Ordinal: ordinal}
	moduleID, err := w.batch.InsertModule(row)
	if err != nil {
		return err
	}
	edge := func(target, kind string, i int) error {
		_, err := w.batch.InsertModuleEdge(&store.ModuleEdge{ModuleID: moduleID, Target: target, Kind: kind, Ordinal: i})
		return err
	}
	for i, dep := range m.Dependencies {
		if err := edge(dep, "dependency", i); err != nil {
			return err
		}
	}
	for i, f := range m.Friends {
		if err := edge(f, "friend", i); err != nil {
			return err
		}
	}
	for i, d := range m.Declarations() {
		if err := w.writeDecl(moduleID, nil, d, i); err != nil {
			return err
		}
	}
	return nil
}

func (w *snapshotWriter) writeDecl(moduleID int64, parentID *int64, d *graph.Declaration, ordinal int) error {
	if d.Origin == graph.OriginSynthetic {
		return nil
	}
	det := d.Details()
	if det.Broken {
		w.logger.Debug("storing broken declaration without details", "decl", d.ID, "err", d.LoadError())
	}

	row := &store.Declaration{
		ModuleID:      moduleID,
		ParentID:      parentID,
		Key:           d.ID,
		Name:          d.Name,
		QualifiedName: d.QualifiedName,
		Package:       d.Package,
		Kind:          string(d.Kind),
		Origin:        string(d.Origin),
		Visibility:    string(d.Visibility),
		Modality:      string(d.Modality),
		Modifiers:     d.Modifiers.Strings(),
		Ordinal:       ordinal,
		JvmName:       det.JvmName,
	}
	var err error
	if row.TypeJSON, err = marshalType(det.Type); err != nil {
		return err
	}
	if row.ReceiverJSON, err = marshalType(det.Receiver); err != nil {
		return err
	}
	if row.ThrowsJSON, err = marshalTypes(det.Throws); err != nil {
		return err
	}
	if row.AnnotationsJSON, err = marshalUsages(storedAnnotations(d, det)); err != nil {
		return err
	}
	if row.DefaultJSON, err = marshalExpr(det.Default); err != nil {
		return err
	}

	var tps []*store.TypeParam
	for i, tp := range det.TypeParams {
		bounds, err := marshalTypes(tp.Bounds)
		if err != nil {
			return err
		}
		tps = append(tps, &store.TypeParam{Ordinal: i, Name: tp.Name, Variance: int(tp.Variance), Reified: tp.Reified, BoundsJSON: bounds})
	}
	var sts []*store.Supertype
	if d.Kind.IsClassifier() {
		for i, st := range det.Supertypes {
			data, err := marshalType(st)
			if err != nil {
				return err
			}
			sts = append(sts, &store.Supertype{Ordinal: i, TypeJSON: data})
		}
	}
	var params []*store.Param
	for i, p := range det.Params {
		row := &store.Param{Ordinal: i, Name: p.Name, Vararg: p.Vararg, HasDefault: p.HasDefault}
		if row.TypeJSON, err = marshalType(p.Type); err != nil {
			return err
		}
		if row.DefaultJSON, err = marshalExpr(p.Default); err != nil {
			return err
		}
		if row.AnnotationsJSON, err = marshalUsages(p.Annotations); err != nil {
			return err
		}
		params = append(params, row)
	}
	row.SignatureHash = store.ComputeSignatureHash(row, tps, sts, params)

	declID, err := w.batch.InsertDeclaration(row)
	if err != nil {
		return err
	}
	for _, tp := range tps {
		tp.DeclID = declID
		if _, err := w.batch.InsertTypeParam(tp); err != nil {
			return err
		}
	}
	for _, st := range sts {
		st.DeclID = declID
		if _, err := w.batch.InsertSupertype(st); err != nil {
			return err
		}
	}
	for _, p := range params {
		p.DeclID = declID
		if _, err := w.batch.InsertParam(p); err != nil {
			return err
		}
	}
	for i, m := range det.Members {
		if err := w.writeDecl(moduleID, &declID, m, i); err != nil {
			return err
		}
	}
	return nil
}

// storedAnnotations returns d's annotations together with the use-site
// targeted ones that were moved onto synthesized accessors, so they move
// again on load.
func storedAnnotations(d *graph.Declaration, det *graph.Details) []*graph.AnnotationUsage {
	if d.Kind != graph.KindProperty {
		return det.Annotations
	}
	out := append([]*graph.AnnotationUsage(nil), det.Annotations...)
	for _, m := range det.Members {
		if m.Origin != graph.OriginSynthetic {
			continue
		}
		out = append(out, m.Annotations()...)
		for _, p := range m.Params() {
			out = append(out, p.Annotations...)
		}
	}
	return out
}

func marshalType(t types.Type) (string, error) {
	if t == nil {
		return "", nil
	}
	data, err := types.Marshal(t)
	if err != nil {
		return "", errors.Wrap(err, "encoding type")
	}
	return string(data), nil
}

func marshalTypes(ts []types.Type) (string, error) {
	if len(ts) == 0 {
		return "", nil
	}
	raw := make([]json.RawMessage, len(ts))
	for i, t := range ts {
		data, err := types.Marshal(t)
		if err != nil {
			return "", errors.Wrap(err, "encoding type")
		}
		raw[i] = data
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", errors.Wrap(err, "encoding type list")
	}
	return string(data), nil
}

func marshalUsages(us []*graph.AnnotationUsage) (string, error) {
	if len(us) == 0 {
		return "", nil
	}
	data, err := graph.MarshalUsages(us)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalExpr(e graph.AnnotationExpr) (string, error) {
	data, err := graph.MarshalExpr(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// --- decoding ---

// Open loads a snapshot written by Save. Declarations are registered as
// stubs and read from the database on first access, so the returned
// Engine keeps the database open until Close.
func Open(dbPath string, opts ...Option) (*Engine, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	g, err := loadSnapshot(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	e := New(g, opts...)
	e.store = s
	tlog.Section(e.logger, tlog.SectionStore).Info("snapshot opened", "path", dbPath, "graph", g.ID)
	return e, nil
}

func loadSnapshot(s *store.Store) (*graph.Graph, error) {
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	graphID, err := s.GetMetadata(metaGraphID)
	if err != nil {
		return nil, err
	}
	if graphID == "" {
		return nil, errors.New("open snapshot: database holds no snapshot")
	}
	mods, err := s.Modules()
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	for _, m := range mods {
		edges, err := s.ModuleEdges(m.ID)
		if err != nil {
			return nil, err
		}
		var deps, friends []string
		for _, e := range edges {
			if e.Kind == "friend" {
				friends = append(friends, e.Target)
			} else {
				deps = append(deps, e.Target)
			}
		}
		b.AddModule(m.Name, deps, friends)
	}

	r := &snapshotReader{store: s, children: map[int64][]*store.Declaration{}, classifiers: map[int64]*graph.Declaration{}}
	for _, m := range mods {
		rows, err := s.DeclarationsByModule(m.ID)
		if err != nil {
			return nil, err
		}
		// Rows come parents first, so every classifier's parent stub exists
		// by the time it is reached.
		for _, row := range rows {
			if row.ParentID == nil {
				d := r.stub(row, nil)
				if err := b.Add(m.Name, d); err != nil {
					return nil, err
				}
				if d.Kind.IsClassifier() {
					r.classifiers[row.ID] = d
				}
				continue
			}
			r.children[*row.ParentID] = append(r.children[*row.ParentID], row)
			parent := r.classifiers[*row.ParentID]
			if parent == nil || !graph.Kind(row.Kind).IsClassifier() {
				continue
			}
			d := r.stub(row, parent)
			if err := b.Add(m.Name, d); err != nil {
				return nil, err
			}
			r.classifiers[row.ID] = d
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	g.ID = graphID
	return g, nil
}

type snapshotReader struct {
	store *store.Store
	// children of each row, in insertion order.
	children map[int64][]*store.Declaration
	// classifiers registered with the builder, by row ID.
	classifiers map[int64]*graph.Declaration
}

func (r *snapshotReader) stub(row *store.Declaration, parent *graph.Declaration) *graph.Declaration {
	mods := make([]graph.Modifier, len(row.Modifiers))
	for i, m := range row.Modifiers {
		mods[i] = graph.Modifier(m)
	}
	d := &graph.Declaration{
		ID:            row.Key,
		Name:          row.Name,
		QualifiedName: row.QualifiedName,
		Package:       row.Package,
		Kind:          graph.Kind(row.Kind),
		Origin:        graph.Origin(row.Origin),
		Visibility:    graph.Visibility(row.Visibility),
		Modality:      graph.Modality(row.Modality),
		Modifiers:     graph.NewModifiers(mods...),
		Parent:        parent,
	}
	if parent != nil {
		d.Module = parent.Module
	}
	return graph.NewStub(d, func(d *graph.Declaration) (*graph.Details, error) {
		return r.load(row, d)
	})
}

// load reads the details of one declaration. It reads enclosing
// declarations' type parameters but never d's own details.
func (r *snapshotReader) load(row *store.Declaration, d *graph.Declaration) (*graph.Details, error) {
	det := &graph.Details{JvmName: row.JvmName}

	tpRows, err := r.store.TypeParamsByDecl(row.ID)
	if err != nil {
		return nil, err
	}
	own := map[string]*types.TypeParameter{}
	for _, tr := range tpRows {
		tp := &types.TypeParameter{
			ID:       graph.TypeParamID(d.ID, tr.Name),
			Name:     tr.Name,
			Variance: types.Variance(tr.Variance),
			Reified:  tr.Reified,
			Owner:    d.ID,
		}
		own[tp.ID] = tp
		det.TypeParams = append(det.TypeParams, tp)
	}
	// Parameters are matched by ID, then by name for graphs whose
	// parameter IDs were not derived from their owner's ID.
	scope := func(id string) (*types.TypeParameter, bool) {
		if tp, ok := own[id]; ok {
			return tp, true
		}
		name := id[strings.LastIndexByte(id, '#')+1:]
		var byName *types.TypeParameter
		for _, tp := range det.TypeParams {
			if tp.Name == name {
				byName = tp
			}
		}
		for p := d.Parent; p != nil; p = p.Parent {
			for _, tp := range p.TypeParams() {
				if tp.ID == id {
					return tp, true
				}
				if tp.Name == name && byName == nil {
					byName = tp
				}
			}
		}
		return byName, byName != nil
	}
	for i, tr := range tpRows {
		if det.TypeParams[i].Bounds, err = unmarshalTypes(tr.BoundsJSON, scope); err != nil {
			return nil, err
		}
	}

	stRows, err := r.store.SupertypesByDecl(row.ID)
	if err != nil {
		return nil, err
	}
	for _, sr := range stRows {
		t, err := types.Unmarshal([]byte(sr.TypeJSON), scope)
		if err != nil {
			return nil, err
		}
		det.Supertypes = append(det.Supertypes, t)
	}

	pRows, err := r.store.ParamsByDecl(row.ID)
	if err != nil {
		return nil, err
	}
	for _, pr := range pRows {
		p := &graph.Parameter{Name: pr.Name, Vararg: pr.Vararg, HasDefault: pr.HasDefault}
		if p.Type, err = types.Unmarshal([]byte(pr.TypeJSON), scope); err != nil {
			return nil, err
		}
		if p.Default, err = graph.UnmarshalExpr([]byte(pr.DefaultJSON), scope); err != nil {
			return nil, err
		}
		if p.Annotations, err = graph.UnmarshalUsages([]byte(pr.AnnotationsJSON), scope); err != nil {
			return nil, err
		}
		det.Params = append(det.Params, p)
	}

	if det.Type, err = types.Unmarshal([]byte(row.TypeJSON), scope); err != nil {
		return nil, err
	}
	if det.Receiver, err = types.Unmarshal([]byte(row.ReceiverJSON), scope); err != nil {
		return nil, err
	}
	if det.Throws, err = unmarshalTypes(row.ThrowsJSON, scope); err != nil {
		return nil, err
	}
	if det.Annotations, err = graph.UnmarshalUsages([]byte(row.AnnotationsJSON), scope); err != nil {
		return nil, err
	}
	if det.Default, err = graph.UnmarshalExpr([]byte(row.DefaultJSON), scope); err != nil {
		return nil, err
	}

	for _, child := range r.children[row.ID] {
		if c := r.classifiers[child.ID]; c != nil {
			det.Members = append(det.Members, c)
			continue
		}
		m := r.stub(child, d)
		m.Module = d.Module
		det.Members = append(det.Members, m)
	}
	return det, nil
}

func unmarshalTypes(data string, scope types.ParamResolver) ([]types.Type, error) {
	if data == "" {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, errors.Wrap(err, "decoding type list")
	}
	out := make([]types.Type, 0, len(raw))
	for _, r := range raw {
		t, err := types.Unmarshal(r, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
