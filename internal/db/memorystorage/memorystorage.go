// Package memorystorage is the process-local store used by "memory://" and by tests.
package memorystorage

import (
	"github.com/patric-chuzhbe/contactkeeper/internal/db/jsondb"
)

// MemoryStorage is a jsondb that never touches the filesystem.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	db, err := jsondb.New("")
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{JSONDB: db}, nil
}
