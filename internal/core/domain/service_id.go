package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The backend sends serviceId as a JSON string or a JSON number. Fields are
// keyed by its text form and a numeric id is echoed back as the same number.

type serviceJSON struct {
	ServiceID  json.RawMessage `json:"serviceId"`
	NomService string          `json:"nomService"`
}

// UnmarshalJSON accepts a string or numeric serviceId
func (s *Service) UnmarshalJSON(data []byte) error {
	var aux serviceJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	key, raw, err := decodeServiceID(aux.ServiceID)
	if err != nil {
		return err
	}
	*s = Service{ServiceID: key, NomService: aux.NomService, RawID: raw}
	return nil
}

// MarshalJSON writes serviceId back in the form it was received
func (s Service) MarshalJSON() ([]byte, error) {
	return json.Marshal(serviceJSON{ServiceID: encodeServiceID(s.ServiceID, s.RawID), NomService: s.NomService})
}

// MarshalJSON writes serviceId back in the form the backend sent it
func (i SubmitItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ServiceID json.RawMessage `json:"serviceId"`
		Montant   float64         `json:"montant"`
		FilledAt  int64           `json:"filledAt"`
	}{encodeServiceID(i.ServiceID, i.RawID), i.Montant, i.FilledAt})
}

// decodeServiceID returns the field key and, for numbers, the raw literal
func decodeServiceID(raw json.RawMessage) (string, json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("missing serviceId")
	}

	switch raw[0] {
	case '"':
		var key string
		if err := json.Unmarshal(raw, &key); err != nil {
			return "", nil, err
		}
		return key, nil, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", nil, err
		}
		return n.String(), append(json.RawMessage(nil), raw...), nil
	}
	return "", nil, fmt.Errorf("serviceId must be a string or a number, got %s", raw)
}

func encodeServiceID(key string, raw json.RawMessage) json.RawMessage {
	if len(raw) > 0 {
		return raw
	}
	quoted, _ := json.Marshal(key)
	return quoted
}
