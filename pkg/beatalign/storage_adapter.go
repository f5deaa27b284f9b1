package beatalign

import "github.com/himanishpuri/BeatAlign/pkg/beatalign/storage"

// NewSQLiteStorage opens the SQLite backend at dbPath. *storage.DBClient
// satisfies Storage directly.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

var _ Storage = (*storage.DBClient)(nil)
