package store

// Snapshot row types. Type, annotation and default-value columns hold JSON
// produced by the types and graph encoders; the store treats them as opaque.

type Module struct {
	ID      int64
	Name    string
	Ordinal int
}

type ModuleEdge struct {
	ID       int64
	ModuleID int64
	Target   string
	Kind     string // "dependency" or "friend"
	Ordinal  int
}

type Declaration struct {
	ID              int64
	ModuleID        int64
	ParentID        *int64
	Key             string
	Name            string
	QualifiedName   string
	Package         string
	Kind            string
	Origin          string
	Visibility      string
	Modality        string
	Modifiers       []string
	Ordinal         int
	TypeJSON        string
	ReceiverJSON    string
	JvmName         string
	AnnotationsJSON string
	ThrowsJSON      string
	DefaultJSON     string
	SignatureHash   string
}

type TypeParam struct {
	ID         int64
	DeclID     int64
	Ordinal    int
	Name       string
	Variance   int
	Reified    bool
	BoundsJSON string
}

type Supertype struct {
	ID       int64
	DeclID   int64
	Ordinal  int
	TypeJSON string
}

type Param struct {
	ID              int64
	DeclID          int64
	Ordinal         int
	Name            string
	TypeJSON        string
	Vararg          bool
	HasDefault      bool
	DefaultJSON     string
	AnnotationsJSON string
}
