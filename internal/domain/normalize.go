package domain

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// normalizeText trims s and puts it in Unicode NFC form, so the same name
// typed on two machines is stored byte-identical on both peers.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeExternalID validates an optional external identifier and returns
// it in canonical form. Empty input yields empty output.
func NormalizeExternalID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", NewBadInput("external_id must be a UUID")
	}
	return u.String(), nil
}

// Normalize trims and NFC-normalizes text fields, lowercases the email and
// validates the envelope.
func (e *UserEnvelope) Normalize() error {
	id, err := NormalizeExternalID(e.ExternalID)
	if err != nil {
		return err
	}
	e.ExternalID = id
	e.Name = normalizeText(e.Name)
	e.Email = strings.ToLower(normalizeText(e.Email))

	if e.Name == "" {
		return NewBadInput("field 'name' is required")
	}
	if e.Email == "" {
		return NewBadInput("field 'email' is required")
	}
	addr, err := mail.ParseAddress(e.Email)
	if err != nil || addr.Address != e.Email {
		return NewBadInput("field 'email' must be a valid address")
	}
	return nil
}

// Normalize validates a delivery agent input.
func (d *DeliveryInput) Normalize() error {
	id, err := NormalizeExternalID(d.ExternalID)
	if err != nil {
		return err
	}
	d.ExternalID = id
	d.Name = normalizeText(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)

	if d.Name == "" {
		return NewBadInput("field 'name' is required")
	}
	if d.Phone == "" {
		return NewBadInput("field 'phone' is required")
	}
	return nil
}

// Normalize validates an order envelope. The agent snapshot is optional here;
// whether it is needed depends on whether the agent already exists locally.
func (e *OrderEnvelope) Normalize() error {
	id, err := NormalizeExternalID(e.ExternalID)
	if err != nil {
		return err
	}
	e.ExternalID = id
	e.Description = normalizeText(e.Description)
	e.DeliveryName = normalizeText(e.DeliveryName)
	e.DeliveryPhone = strings.TrimSpace(e.DeliveryPhone)

	if e.Description == "" {
		return NewBadInput("field 'description' is required")
	}
	if e.Value == nil {
		return NewBadInput("field 'value' is required")
	}
	if *e.Value < 0 {
		return NewBadInput("field 'value' must not be negative")
	}

	if strings.TrimSpace(e.UserExternalID) == "" {
		return NewBadInput("field 'user_external_id' is required")
	}
	if e.UserExternalID, err = NormalizeExternalID(e.UserExternalID); err != nil {
		return NewBadInput("field 'user_external_id' must be a UUID")
	}

	if strings.TrimSpace(e.DeliveryExternalID) == "" {
		return NewBadInput("field 'delivery_external_id' is required")
	}
	if e.DeliveryExternalID, err = NormalizeExternalID(e.DeliveryExternalID); err != nil {
		return NewBadInput("field 'delivery_external_id' must be a UUID")
	}
	return nil
}
