// Package archive keeps an audit trail of form validations in S3-compatible storage.
//
// Records are stored as JSON under submissions/<id>.json. Ids are UUIDv7, so a
// lexical listing of the prefix is also chronological.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/country-form/internal/errs"
	"github.com/kuitang/country-form/internal/obs"
	"github.com/kuitang/country-form/internal/validation"
)

const keyPrefix = "submissions/"

var logger = obs.Pkg("archive")

// Store is the object storage the archive writes to.
type Store interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// Record is one archived validation.
type Record struct {
	ID         string            `json:"id"`
	ReceivedAt time.Time         `json:"received_at"`
	RequestID  string            `json:"request_id,omitempty"`
	Input      validation.Input  `json:"input"`
	Result     validation.Result `json:"result"`
}

// Archive writes and reads validation records.
type Archive struct {
	store Store
	now   func() time.Time
}

// New returns an Archive on top of store.
func New(store Store) *Archive {
	return &Archive{store: store, now: time.Now}
}

// Save stores a record of in and its result and returns the record.
func (a *Archive) Save(ctx context.Context, in validation.Input, result validation.Result) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("archive: generate id: %w", err)
	}

	rec := Record{
		ID:         id.String(),
		ReceivedAt: a.now().UTC(),
		RequestID:  obs.RequestIDFromContext(ctx),
		Input:      in,
		Result:     result,
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("archive: encode record: %w", err)
	}
	if err := a.store.PutObject(ctx, keyFor(rec.ID), body, "application/json"); err != nil {
		return Record{}, errs.Wrap(errs.Unavailable, "archive unavailable", err)
	}

	obs.From(ctx).Debug("submission_archived", "pkg", "archive", "id", rec.ID, "category", result.Category)
	return rec, nil
}

// Get returns the record with the given id.
func (a *Archive) Get(ctx context.Context, id string) (Record, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Record{}, errs.Invalid("id", "invalid submission id")
	}

	body, err := a.store.GetObject(ctx, keyFor(parsed.String()))
	if errors.Is(err, ErrObjectNotFound) {
		return Record{}, errs.New(errs.NotFound, "submission not found")
	}
	if err != nil {
		return Record{}, errs.Wrap(errs.Unavailable, "archive unavailable", err)
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, fmt.Errorf("archive: decode record %s: %w", id, err)
	}
	return rec, nil
}

// RecentIDs returns up to limit record ids, newest first.
func (a *Archive) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	keys, err := a.store.ListKeys(ctx, keyPrefix)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "archive unavailable", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, keyPrefix), ".json")
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func keyFor(id string) string {
	return keyPrefix + id + ".json"
}
