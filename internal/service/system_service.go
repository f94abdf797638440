package service

import (
	"database/sql"

	"github.com/quantclear/fofnav/internal/database"
	"github.com/quantclear/fofnav/internal/version"
)

// SystemService reports process-level status: store connectivity and the
// build version.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// Health reports whether the backing store is reachable.
func (s *SystemService) Health() error {
	return database.HealthCheck(s.db)
}

// Version returns the build version stamped at link time.
func (s *SystemService) Version() string {
	return version.Version
}
