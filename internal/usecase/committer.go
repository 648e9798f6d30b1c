package usecase

import (
	"context"

	"medscribe/internal/domain"
	"medscribe/internal/ports"
	"medscribe/internal/reconcile"
)

const (
	collectionSessions = "sessions"
	collectionPatients = "patients"
)

// Committer persists completed sessions and reconciled patient records.
// It never mutates the session; persistence failures surface as
// ReconciliationError with the persistence code and are retryable.
type Committer struct {
	store  ports.DocumentStore
	events ports.EventSink
}

func NewCommitter(store ports.DocumentStore, events ports.EventSink) *Committer {
	return &Committer{store: store, events: events}
}

// CommitSession writes the finished session document. The raw blob
// stays on disk at AudioPath; the document carries its path and mime.
func (c *Committer) CommitSession(ctx context.Context, session domain.RecordingSession) (string, error) {
	id, err := c.store.Save(ctx, collectionSessions, session)
	if err != nil {
		c.events.SessionError(domain.ErrCodePersistence, err.Error())
		return "", domain.ReconciliationError(domain.ErrCodePersistence, "failed to persist session", err)
	}
	return id, nil
}

// CommitNewPatient accepts a proposal produced by the reconciliation
// layer and writes the resulting patient record.
func (c *Committer) CommitNewPatient(ctx context.Context, patient domain.Patient) (string, error) {
	id, err := c.store.Save(ctx, collectionPatients, patient)
	if err != nil {
		c.events.SessionError(domain.ErrCodePersistence, err.Error())
		return "", domain.ReconciliationError(domain.ErrCodePersistence, "failed to persist patient", err)
	}
	return id, nil
}

// CommitUpdate loads the targeted patient, applies the accepted
// proposal, and writes the merged record back.
func (c *Committer) CommitUpdate(ctx context.Context, update domain.PatientUpdate) (domain.Patient, error) {
	var patient domain.Patient
	if err := c.store.Get(ctx, collectionPatients, update.PatientID, &patient); err != nil {
		c.events.SessionError(domain.ErrCodePersistence, err.Error())
		return domain.Patient{}, domain.ReconciliationError(domain.ErrCodePersistence, "failed to load patient for update", err)
	}

	merged := reconcile.ApplyUpdate(patient, update)
	if _, err := c.store.Save(ctx, collectionPatients, merged); err != nil {
		c.events.SessionError(domain.ErrCodePersistence, err.Error())
		return domain.Patient{}, domain.ReconciliationError(domain.ErrCodePersistence, "failed to persist patient update", err)
	}
	return merged, nil
}
