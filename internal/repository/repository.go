package repository

import (
	"database/sql"
	"time"
)

// Repository groups the bridge's persistence: the application document
// (call history, master directory) and the SQLite log.
type Repository struct {
	Document  DocumentStore
	Calls     CallHistory
	Master    MasterDirectory
	EventRepo EventRepo
	LinkState LinkStateRepo
}

func NewRepository(db *sql.DB, documentPath string, now func() time.Time) *Repository {
	doc := NewJSONFileStore(documentPath)
	return &Repository{
		Document:  doc,
		Calls:     NewCallHistoryJSON(doc, now),
		Master:    NewMasterJSON(doc),
		EventRepo: NewEventSQLite(db),
		LinkState: NewLinkStateSQLite(db),
	}
}
