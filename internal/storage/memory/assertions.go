package memory

import (
	"github.com/tinoosan/bank/internal/service/account"
	"github.com/tinoosan/bank/internal/service/journal"
	"github.com/tinoosan/bank/internal/service/registry"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ registry.Repo   = (*Store)(nil)
	_ registry.Writer = (*Store)(nil)
	_ account.Repo    = (*Store)(nil)
	_ journal.Repo    = (*Store)(nil)
)
