package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// EventPatch is a partial update of an event. Known fields are typed; any
// other key in the JSON object is merged into Event.Metadata.
type EventPatch struct {
	Title          *string
	Description    *string
	Venue          *string
	ImageURL       *string
	StartsAt       *time.Time
	ClearStartsAt  bool
	TotalSeats     *int
	AvailableSeats *int
	Price          *float64
	Metadata       map[string]any
}

var readOnlyEventFields = map[string]bool{
	"_id":       true,
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
}

// UnmarshalJSON decodes a patch document.
func (p *EventPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return &ValidationError{Reason: "patch must be a JSON object"}
	}

	*p = EventPatch{}
	for key, value := range raw {
		if readOnlyEventFields[key] {
			return &ValidationError{Field: key, Reason: "is read-only"}
		}

		var err error
		switch key {
		case "title":
			err = decodeField(value, &p.Title)
		case "description":
			err = decodeField(value, &p.Description)
		case "venue":
			err = decodeField(value, &p.Venue)
		case "imageUrl":
			err = decodeField(value, &p.ImageURL)
		case "startsAt":
			if isNull(value) {
				p.ClearStartsAt = true
				continue
			}
			err = decodeField(value, &p.StartsAt)
		case "totalSeats":
			err = decodeField(value, &p.TotalSeats)
		case "availableSeats":
			err = decodeField(value, &p.AvailableSeats)
		case "price":
			err = decodeField(value, &p.Price)
		case "metadata":
			var m map[string]any
			if err = json.Unmarshal(value, &m); err == nil {
				p.mergeMetadata(m)
			}
		default:
			var v any
			if err = json.Unmarshal(value, &v); err == nil {
				p.mergeMetadata(map[string]any{key: v})
			}
		}
		if err != nil {
			return &ValidationError{Field: key, Reason: "has an invalid value"}
		}
	}
	return nil
}

func (p *EventPatch) mergeMetadata(m map[string]any) {
	if len(m) == 0 {
		return
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]any, len(m))
	}
	for k, v := range m {
		p.Metadata[k] = v
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p *EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Venue == nil &&
		p.ImageURL == nil && p.StartsAt == nil && !p.ClearStartsAt &&
		p.TotalSeats == nil && p.AvailableSeats == nil && p.Price == nil &&
		len(p.Metadata) == 0
}

// Apply writes the patch onto e and checks the resulting event.
func (p *EventPatch) Apply(e *Event) error {
	if p.Title != nil {
		if *p.Title == "" {
			return &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Venue != nil {
		e.Venue = *p.Venue
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.ClearStartsAt {
		e.StartsAt = nil
	}
	if p.StartsAt != nil {
		t := p.StartsAt.UTC()
		e.StartsAt = &t
	}
	if p.TotalSeats != nil {
		// Growing or shrinking the hall moves the free seats with it unless
		// the caller sets availableSeats explicitly.
		delta := *p.TotalSeats - e.TotalSeats
		e.TotalSeats = *p.TotalSeats
		if p.AvailableSeats == nil {
			e.AvailableSeats += delta
		}
	}
	if p.AvailableSeats != nil {
		e.AvailableSeats = *p.AvailableSeats
	}
	if p.Price != nil {
		if *p.Price < 0 {
			return &ValidationError{Field: "price", Reason: "must not be negative"}
		}
		e.Price = *p.Price
	}
	if len(p.Metadata) > 0 {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			e.Metadata[k] = v
		}
	}
	return e.CheckCapacity()
}

func decodeField[T any](raw json.RawMessage, dst **T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
