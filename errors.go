package trellis

import (
	"fmt"
	"strings"

	"github.com/jward/trellis/internal/graph"
)

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	CodeUnresolvedReference   ErrorCode = "UNRESOLVED_REFERENCE"
	CodeNotMember             ErrorCode = "NOT_MEMBER"
	CodeOverrideInconsistency ErrorCode = "OVERRIDE_INCONSISTENCY"
	CodeAnnotationCycle       ErrorCode = "ANNOTATION_CYCLE"
	CodeAliasCycle            ErrorCode = "ALIAS_CYCLE"
)

// CodedError is implemented by every error the resolver returns.
type CodedError interface {
	error
	Code() ErrorCode
}

// UnresolvedReferenceError reports a name that does not resolve within the
// querying module's dependency closure.
type UnresolvedReferenceError struct {
	Name   string
	Module string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("unresolved reference %s", e.Name)
	}
	return fmt.Sprintf("unresolved reference %s from module %s", e.Name, e.Module)
}

func (e *UnresolvedReferenceError) Code() ErrorCode { return CodeUnresolvedReference }

// NotMemberError reports an as-member-of query whose receiver is not a
// subtype of the declaration's container.
type NotMemberError struct {
	Decl     string
	Receiver string
}

func (e *NotMemberError) Error() string {
	return fmt.Sprintf("%s is not a member of %s", e.Decl, e.Receiver)
}

func (e *NotMemberError) Code() ErrorCode { return CodeNotMember }

// OverrideInconsistencyError reports a declaration marked override that
// overrides nothing.
type OverrideInconsistencyError struct {
	Decl string
}

func (e *OverrideInconsistencyError) Error() string {
	return fmt.Sprintf("%s is marked override but overrides nothing", e.Decl)
}

func (e *OverrideInconsistencyError) Code() ErrorCode { return CodeOverrideInconsistency }

// AnnotationCycleError reports an annotation usage reached again while it
// was being evaluated.
type AnnotationCycleError struct {
	Class string

	// usage is the usage reached twice.
	usage *graph.AnnotationUsage
}

func (e *AnnotationCycleError) Error() string {
	return fmt.Sprintf("annotation cycle through %s", e.Class)
}

func (e *AnnotationCycleError) Code() ErrorCode { return CodeAnnotationCycle }

// AliasCycleError reports a type alias whose expansion refers back to
// itself. Path starts and ends with the same alias.
type AliasCycleError struct {
	Path []string
}

func (e *AliasCycleError) Error() string {
	return fmt.Sprintf("type alias cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *AliasCycleError) Code() ErrorCode { return CodeAliasCycle }
