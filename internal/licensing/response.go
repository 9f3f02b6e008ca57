package licensing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Verdict reasons
const (
	ReasonActivated        = "activated"
	ReasonAlreadyActivated = "already_activated"
	ReasonMetaValid        = "meta_valid"
	ReasonMetaInvalid      = "meta_invalid"
	ReasonNoSignal         = "no_signal"
	ReasonBadStatus        = "bad_status"
)

// ActivationResponse holds the fields of an activation reply that affect the
// outcome. A field of the wrong JSON type is treated as absent.
type ActivationResponse struct {
	Activated *bool         `json:"activated,omitempty"`
	Error     *string       `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta is the optional "meta" object.
type ResponseMeta struct {
	Valid *bool `json:"valid,omitempty"`
}

// Verdict is the classified outcome of an activation attempt.
type Verdict struct {
	Valid  bool
	Reason string
}

var errNotObject = errors.New("activation response is not a JSON object")

// UnmarshalJSON requires a top-level object and tolerates mistyped fields.
func (r *ActivationResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errNotObject
	}

	*r = ActivationResponse{}
	if v, ok := raw["activated"]; ok {
		r.Activated = decodeBool(v)
	}
	if v, ok := raw["error"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			r.Error = &s
		}
	}
	if v, ok := raw["meta"]; ok {
		var meta map[string]json.RawMessage
		if json.Unmarshal(v, &meta) == nil && meta != nil {
			r.Meta = &ResponseMeta{}
			if valid, ok := meta["valid"]; ok {
				r.Meta.Valid = decodeBool(valid)
			}
		}
	}
	return nil
}

func decodeBool(v json.RawMessage) *bool {
	var b bool
	if json.Unmarshal(v, &b) != nil {
		return nil
	}
	return &b
}

// Decide maps an HTTP status and parsed body to a verdict. Rules are applied
// in order: status, activated, "already" in error, meta.valid.
func Decide(statusCode int, resp *ActivationResponse) Verdict {
	if statusCode != http.StatusOK && statusCode != http.StatusBadRequest {
		return Verdict{Valid: false, Reason: ReasonBadStatus}
	}
	if resp == nil {
		return Verdict{Valid: false, Reason: ReasonNoSignal}
	}
	if resp.Activated != nil && *resp.Activated {
		return Verdict{Valid: true, Reason: ReasonActivated}
	}
	if resp.Error != nil && strings.Contains(*resp.Error, "already") {
		return Verdict{Valid: true, Reason: ReasonAlreadyActivated}
	}
	if resp.Meta != nil && resp.Meta.Valid != nil {
		if *resp.Meta.Valid {
			return Verdict{Valid: true, Reason: ReasonMetaValid}
		}
		return Verdict{Valid: false, Reason: ReasonMetaInvalid}
	}
	return Verdict{Valid: false, Reason: ReasonNoSignal}
}
