package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is the persisted and wire shape of a task.
//
// The same shape serves the local blob (id included), remote active documents
// (id omitted, the document key is the id) and remote archived documents (id
// included so the record can be found again by its logical id).
type Record struct {
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	Completed   bool   `json:"completed"`
	Category    string `json:"category"`
	DueDateTime string `json:"dueDateTime,omitempty"`
	Priority    string `json:"priority"`
	OwnerID     string `json:"ownerId,omitempty"`
}

// UnmarshalJSON accepts the legacy layouts found in older saves: numeric ids,
// split dueDate/dueTime fields and userId instead of ownerId.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var raw struct {
		alias
		ID      json.RawMessage `json:"id,omitempty"`
		DueDate string          `json:"dueDate,omitempty"`
		DueTime string          `json:"dueTime,omitempty"`
		UserID  string          `json:"userId,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.alias)

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	r.ID = id

	if r.DueDateTime == "" && raw.DueDate != "" {
		r.DueDateTime = strings.TrimSpace(raw.DueDate)
		if t := strings.TrimSpace(raw.DueTime); t != "" {
			r.DueDateTime += "T" + t
		}
	}
	if r.OwnerID == "" {
		r.OwnerID = raw.UserID
	}
	return nil
}

// decodeID reads an id that may be a JSON string or a JSON number.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	return n.String(), nil
}

// ToRecord converts t to its persisted shape.
func ToRecord(t Task) Record {
	return Record{
		ID:          t.ID,
		Text:        t.Text,
		Completed:   t.Completed,
		Category:    t.Category,
		DueDateTime: FormatDue(t.DueAt),
		Priority:    string(t.Priority),
		OwnerID:     t.OwnerID,
	}
}

// FromRecord validates and normalises a loaded record.
// id overrides r.ID when the store keys records separately (remote active documents).
func FromRecord(id string, r Record) (Task, error) {
	if id == "" {
		id = r.ID
	}
	due, err := ParseDue(r.DueDateTime)
	if err != nil {
		return Task{}, err
	}
	prio, err := ParsePriority(r.Priority)
	if err != nil {
		return Task{}, err
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = DefaultCategory
	}
	t := Task{
		ID:        id,
		Text:      NormalizeText(r.Text),
		Category:  category,
		Priority:  prio,
		DueAt:     due,
		Completed: r.Completed,
		OwnerID:   r.OwnerID,
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}
