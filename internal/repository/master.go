package repository

import (
	"context"

	"nursecall_bridge/internal/models"
)

// MasterDirectory is the read-only code → location view over the document.
type MasterDirectory interface {
	MasterType(ctx context.Context) (string, error)
	Lookup(ctx context.Context, code string) (models.MasterEntry, bool, error)
	Entries(ctx context.Context) ([]models.MasterEntry, error)
}

type MasterJSON struct {
	store DocumentStore
}

var _ MasterDirectory = (*MasterJSON)(nil)

func NewMasterJSON(store DocumentStore) *MasterJSON {
	return &MasterJSON{store: store}
}

func (m *MasterJSON) MasterType(ctx context.Context) (string, error) {
	doc, err := m.store.Read(ctx)
	if err != nil {
		return "", err
	}
	return doc.MasterType(), nil
}

func (m *MasterJSON) Lookup(ctx context.Context, code string) (models.MasterEntry, bool, error) {
	doc, err := m.store.Read(ctx)
	if err != nil {
		return models.MasterEntry{}, false, err
	}
	e, ok := doc.LookupMaster(code)
	return e, ok, nil
}

func (m *MasterJSON) Entries(ctx context.Context) ([]models.MasterEntry, error) {
	doc, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.MasterEntries(), nil
}
