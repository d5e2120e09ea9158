package graph

import (
	"fmt"
	"strings"
)

// ModuleCycleError reports a cycle in module dependency edges. It is a
// configuration error detected by Builder.Build.
type ModuleCycleError struct {
	Cycle []string
}

func (e *ModuleCycleError) Error() string {
	return fmt.Sprintf("module dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// Code returns the stable error code.
func (e *ModuleCycleError) Code() string { return "MODULE_CYCLE" }

// UnknownModuleError reports a dependency or friend that names no module.
type UnknownModuleError struct {
	Module string
	Ref    string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("module %q references unknown module %q", e.Module, e.Ref)
}

// Code returns the stable error code.
func (e *UnknownModuleError) Code() string { return "UNKNOWN_MODULE" }
