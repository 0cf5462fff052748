package controller

import (
	"fmt"

	"github.com/procflow/engine/identifier"
)

func errUnregisteredBuiltin(graph identifier.ID) error {
	return fmt.Errorf("no built-in factory registered for graph %s", graph)
}

func errUserGraphUnsupported(graph identifier.ID) error {
	return fmt.Errorf("user-graph boot is not implemented (graph %s): declared extension point, see DESIGN.md", graph)
}
