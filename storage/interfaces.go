package storage

import "engagement-dashboard/models"

// TableWriter is the interface any storage backend must satisfy.
type TableWriter interface {
	Write(table *models.CombinedTable) error
	Close() error
}

// TableReader loads a previously stored combined table.
type TableReader interface {
	FetchAll() (*models.CombinedTable, error)
	Close() error
}

// Store is a backend that can both persist and reload a table.
type Store interface {
	TableWriter
	FetchAll() (*models.CombinedTable, error)
}
