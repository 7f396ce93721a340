// Command libraryctl runs maintenance tasks against the library database:
// schema migrations, default data, overdue sweeps, fine reconciliation and
// staff token issuing.
package main

import (
	"os"

	"github.com/biblioteka/backend/internal/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error().Err(err).Msg("libraryctl failed")
		os.Exit(1)
	}
}
