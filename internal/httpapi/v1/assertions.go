package v1

import (
	"github.com/tinoosan/bank/internal/storage/memory"
	"github.com/tinoosan/bank/internal/storage/postgres"
)

// Compile-time interface assertions for the stores the server can probe.
var (
	_ ReadyChecker = (*memory.Store)(nil)
	_ ReadyChecker = (*postgres.Store)(nil)
)
