package service

import (
	"context"
	"time"

	"nursecall_bridge/internal/models"
	"nursecall_bridge/internal/repository"
)

// CallService runs operator commands against the call history. It shares
// the document store, and so its lock, with the bridge worker.
type CallService struct {
	calls repository.CallHistory
	sink  Publisher
	now   func() time.Time
}

var _ Calls = (*CallService)(nil)

func NewCallService(calls repository.CallHistory, sink Publisher) *CallService {
	if sink == nil {
		sink = Fanout(nil)
	}
	return &CallService{calls: calls, sink: sink, now: time.Now}
}

// EncloseLatest completes the most recent pending call of any station.
// It returns repository.ErrNoPendingCalls when nothing is pending.
func (s *CallService) EncloseLatest(ctx context.Context) (models.CallRecord, error) {
	rec, err := s.calls.CompleteLatestAny(ctx)
	if err != nil {
		return models.CallRecord{}, err
	}
	s.publishResolved(rec)
	return rec, nil
}

// EncloseAll completes every pending call and returns how many changed.
func (s *CallService) EncloseAll(ctx context.Context) (int, error) {
	done, err := s.calls.CompleteAllPending(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range done {
		s.publishResolved(rec)
	}
	return len(done), nil
}

func (s *CallService) History(ctx context.Context, status string) ([]models.CallRecord, error) {
	return s.calls.List(ctx, status)
}

func (s *CallService) publishResolved(rec models.CallRecord) {
	s.sink.Publish(models.BridgeEvent{
		Type:       models.EventCallResolved,
		Data:       resolvedPayload(rec),
		OccurredAt: s.now().UTC(),
	})
}
