package service

import (
	"context"

	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/repository"
)

// MasterView is the master directory as seen by the bridge.
type MasterView struct {
	MasterType   string               `json:"master_type"`
	ADCThreshold int                  `json:"adc_threshold"`
	Entries      []models.MasterEntry `json:"entries"`
}

type MasterService struct {
	master repository.MasterDirectory
	doc    repository.DocumentStore
}

var _ Master = (*MasterService)(nil)

func NewMasterService(master repository.MasterDirectory, doc repository.DocumentStore) *MasterService {
	return &MasterService{master: master, doc: doc}
}

func (s *MasterService) Directory(ctx context.Context) (MasterView, error) {
	mt, err := s.master.MasterType(ctx)
	if err != nil {
		return MasterView{}, err
	}
	entries, err := s.master.Entries(ctx)
	if err != nil {
		return MasterView{}, err
	}
	if entries == nil {
		entries = []models.MasterEntry{}
	}
	return MasterView{
		MasterType:   mt,
		ADCThreshold: models.ADCThreshold(mt),
		Entries:      entries,
	}, nil
}

// ReplaceDocument overwrites the whole application document. Writes are
// serialized with call history updates.
func (s *MasterService) ReplaceDocument(ctx context.Context, raw []byte) error {
	return s.doc.Replace(ctx, raw)
}
