package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Archiver struct {
	store ObjectStore
}

func NewArchiver(store ObjectStore) *Archiver {
	return &Archiver{store: store}
}

// BatchKey is the object key for one organization's logs on one UTC day.
func BatchKey(orgID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("activity/%s/%s.ndjson", orgID, day.UTC().Format("2006/01/02"))
}

// WriteBatch encodes records as NDJSON and stores them under the org/day
// key. Re-archiving the same day overwrites the previous object, so the
// caller should pass the complete set for that day.
func (a *Archiver) WriteBatch(ctx context.Context, orgID uuid.UUID, day time.Time, records []any) (string, error) {
	if len(records) == 0 {
		return "", errors.New("empty batch")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return "", err
		}
	}
	key := BatchKey(orgID, day)
	if err := a.store.PutObject(ctx, key, "application/x-ndjson", buf.Bytes()); err != nil {
		return "", err
	}
	return key, nil
}

// AppendBatch merges records into an existing day object when one is
// already there, so a day archived across several passes stays complete.
// Records whose id is already present are skipped; a pass may re-archive
// rows it could not prune the previous time.
func (a *Archiver) AppendBatch(ctx context.Context, orgID uuid.UUID, day time.Time, records []any) (string, error) {
	key := BatchKey(orgID, day)
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return a.WriteBatch(ctx, orgID, day, records)
	}
	existing, err := a.ReadBatch(ctx, orgID, day)
	if err != nil {
		return "", err
	}

	seen := map[string]struct{}{}
	merged := make([]any, 0, len(existing)+len(records))
	for _, line := range existing {
		if id := recordID(line); id != "" {
			seen[id] = struct{}{}
		}
		merged = append(merged, line)
	}
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return "", err
		}
		if id := recordID(raw); id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		merged = append(merged, json.RawMessage(raw))
	}
	return a.WriteBatch(ctx, orgID, day, merged)
}

func recordID(raw json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.ID
}

// ReadBatch fetches one day's archived records as raw JSON lines.
func (a *Archiver) ReadBatch(ctx context.Context, orgID uuid.UUID, day time.Time) ([]json.RawMessage, error) {
	b, err := a.store.GetObject(ctx, BatchKey(orgID, day))
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(b))
	for dec.More() {
		var line json.RawMessage
		if err := dec.Decode(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

// ListDays returns the archived object keys for one organization.
func (a *Archiver) ListDays(ctx context.Context, orgID uuid.UUID, limit int) ([]string, error) {
	return a.store.ListObjects(ctx, "activity/"+orgID.String()+"/", limit)
}
