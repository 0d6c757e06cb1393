package repository

import (
	"context"
	"errors"
	"time"

	"nursecall_bridge/internal/models"
)

// ErrNoPendingCalls is returned when a completion needs a pending call and none exists.
var ErrNoPendingCalls = errors.New("no pending calls")

// Timestamp layouts used in call records.
const (
	layoutISO          = time.RFC3339        // 2026-10-17T12:03:09Z
	layoutLocalCompact = "15:04:05.1-2-2006" // 14:03:09.10-17-2026
)

// NewCall is the outcome of a successful AppendActive.
type NewCall struct {
	Record models.CallRecord
	Files  []string
}

// CallHistory is the persisted ledger of nurse calls.
type CallHistory interface {
	// AppendActive records a new active call for code. It returns nil when the
	// ADC value is below the master type threshold or when code already has
	// a pending call.
	AppendActive(ctx context.Context, code string, adc int) (*NewCall, error)
	// CompleteLatestMatching completes the most recent pending call for code.
	// found is false when no such call exists.
	CompleteLatestMatching(ctx context.Context, code string) (rec models.CallRecord, found bool, err error)
	// CompleteLatestAny completes the most recent pending call of any code.
	CompleteLatestAny(ctx context.Context) (models.CallRecord, error)
	// CompleteAllPending completes every pending call and returns them in history order.
	CompleteAllPending(ctx context.Context) ([]models.CallRecord, error)
	// List returns the history, optionally filtered by status.
	List(ctx context.Context, status string) ([]models.CallRecord, error)
}

// CallHistoryJSON implements CallHistory on top of the application document.
type CallHistoryJSON struct {
	store DocumentStore
	now   func() time.Time
}

// Ensure implementation of CallHistory at compile time.
var _ CallHistory = (*CallHistoryJSON)(nil)

// NewCallHistoryJSON builds the history store. now defaults to time.Now.
func NewCallHistoryJSON(store DocumentStore, now func() time.Time) *CallHistoryJSON {
	if now == nil {
		now = time.Now
	}
	return &CallHistoryJSON{store: store, now: now}
}

func (r *CallHistoryJSON) AppendActive(ctx context.Context, code string, adc int) (*NewCall, error) {
	var created *NewCall
	err := r.store.Update(ctx, func(doc *Document) (bool, error) {
		if adc < models.ADCThreshold(doc.MasterType()) {
			return false, nil
		}
		if latestPending(doc.History, code) != nil {
			return false, nil
		}

		entry, _ := doc.LookupMaster(code)
		now := r.now()
		iso := now.UTC().Format(layoutISO)
		rec := models.CallRecord{
			ID:           nextID(doc.History, now),
			Code:         code,
			Room:         entry.RoomName,
			Bed:          entry.BedName,
			Display:      models.DisplayName(code, entry.RoomName, entry.BedName),
			Time:         now.Local().Format(layoutLocalCompact),
			Timestamp:    iso,
			Status:       models.StatusActive,
			DateAdded:    iso,
			DateModified: iso,
		}
		if _, err := doc.appendRecord(rec); err != nil {
			return false, err
		}
		created = &NewCall{Record: rec, Files: entry.Files()}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *CallHistoryJSON) CompleteLatestMatching(ctx context.Context, code string) (models.CallRecord, bool, error) {
	var (
		out   models.CallRecord
		found bool
	)
	err := r.store.Update(ctx, func(doc *Document) (bool, error) {
		e := latestPending(doc.History, code)
		if e == nil {
			return false, nil
		}
		r.complete(e)
		out, found = e.Record, true
		return true, nil
	})
	if err != nil {
		return models.CallRecord{}, false, err
	}
	return out, found, nil
}

func (r *CallHistoryJSON) CompleteLatestAny(ctx context.Context) (models.CallRecord, error) {
	var out models.CallRecord
	err := r.store.Update(ctx, func(doc *Document) (bool, error) {
		for i := len(doc.History) - 1; i >= 0; i-- {
			e := doc.History[i]
			if e.Opaque() || e.Record.IsCompleted() {
				continue
			}
			r.complete(e)
			out = e.Record
			return true, nil
		}
		return false, ErrNoPendingCalls
	})
	if err != nil {
		return models.CallRecord{}, err
	}
	return out, nil
}

func (r *CallHistoryJSON) CompleteAllPending(ctx context.Context) ([]models.CallRecord, error) {
	var done []models.CallRecord
	err := r.store.Update(ctx, func(doc *Document) (bool, error) {
		for _, e := range doc.History {
			if e.Opaque() || e.Record.IsCompleted() {
				continue
			}
			r.complete(e)
			done = append(done, e.Record)
		}
		return len(done) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

func (r *CallHistoryJSON) List(ctx context.Context, status string) ([]models.CallRecord, error) {
	doc, err := r.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	records := doc.Records()
	out := make([]models.CallRecord, 0, len(records))
	for _, rec := range records {
		switch status {
		case "":
		case models.StatusCompleted:
			if !rec.IsCompleted() {
				continue
			}
		default:
			if rec.IsCompleted() {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// complete stamps the entry as completed at the current time. Only the
// completion keys are rewritten.
func (r *CallHistoryJSON) complete(e *HistoryEntry) {
	now := r.now()
	iso := now.UTC().Format(layoutISO)
	local := now.Local().Format(layoutLocalCompact)

	e.Record.Status = models.StatusCompleted
	e.Record.ResetTime = iso
	e.Record.ResetTimeStr = local
	e.Record.DateModified = iso

	e.setString("status", models.StatusCompleted)
	e.setString("resetTime", iso)
	e.setString("resetTimeStr", local)
	e.setString("dateModified", iso)
}

// latestPending returns the most recent non-completed entry for code, or nil.
func latestPending(history []*HistoryEntry, code string) *HistoryEntry {
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		if !e.Opaque() && e.Record.Code == code && !e.Record.IsCompleted() {
			return e
		}
	}
	return nil
}

// nextID uses the creation time in milliseconds, bumped past the largest
// existing id so ids stay strictly increasing.
func nextID(history []*HistoryEntry, now time.Time) int64 {
	id := now.UnixMilli()
	for _, e := range history {
		if e.Record.ID >= id {
			id = e.Record.ID + 1
		}
	}
	return id
}
