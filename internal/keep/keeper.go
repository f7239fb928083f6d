package keep

import "time"

// PollInterval is the fixed cadence of the watch loop.
const PollInterval = 2 * time.Second

// Keeper implements the backup core: signatures, timestamped backups,
// restores, cleanup and the watch loop. It holds no per-file state, so one
// Keeper can serve manual operations and a running watch at the same time.
type Keeper struct {
	fsmgr    FilesystemManager
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	interval time.Duration
}

// NewKeeper creates a Keeper with the provided dependencies.
func NewKeeper(fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator) *Keeper {
	return &Keeper{
		fsmgr:    fsmgr,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		interval: PollInterval,
	}
}
