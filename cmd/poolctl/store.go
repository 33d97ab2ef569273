package main

import "github.com/cuemby/poolfs/pkg/audit"

// auditStore opens the configured audit database. Callers must Close it.
func auditStore() (*audit.Store, error) {
	return audit.Open(cfg.DataDir)
}
