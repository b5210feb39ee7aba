package tools

import (
	"fmt"
	"slices"

	"github.com/teamcutter/csharpls/internal/domain"
)

// All returns every tool this module manages, keyed by directory prefix.
func All(catalog domain.Catalog, target Platform) map[string]domain.Tool {
	return map[string]domain.Tool{
		VSCodeCSharp{}.Name(): VSCodeCSharp{Target: target},
		Netcoredbg{}.Name():   Netcoredbg{Catalog: catalog, Target: target},
	}
}

func Names() []string {
	names := []string{VSCodeCSharp{}.Name(), Netcoredbg{}.Name()}
	slices.Sort(names)
	return names
}

func Lookup(name string, catalog domain.Catalog, target Platform) (domain.Tool, error) {
	tool, ok := All(catalog, target)[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s (known: %v)", name, Names())
	}
	return tool, nil
}
