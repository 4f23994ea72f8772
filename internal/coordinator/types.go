package coordinator

import "encoding/json"

// StringList accepts either a single JSON string or an array of strings.
// Service-call fields that name a target may arrive in either shape.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}

// First returns the first element, or "" for an empty list.
func (s StringList) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Selector is the structured target block of a service call.
type Selector struct {
	EntityID StringList `json:"entity_id,omitempty"`
	DeviceID StringList `json:"device_id,omitempty"`
	AreaID   StringList `json:"area_id,omitempty"`
}

// CallTarget carries every way a service call can name its target device.
// Resolution priority is DeviceID, Device, then the Target selector's
// entity, device and area fields; see Resolver.Resolve.
type CallTarget struct {
	DeviceID StringList `json:"device_id,omitempty"`
	Device   StringList `json:"device,omitempty"`
	Target   *Selector  `json:"target,omitempty"`
}

// ParamRequest is the input for get_fan_param and update_fan_params.
type ParamRequest struct {
	CallTarget
	ParamID string `json:"param_id,omitempty"`
	FromID  string `json:"from_id,omitempty"`
}

// SetParamRequest is the input for set_fan_param.
type SetParamRequest struct {
	ParamRequest
	Value string `json:"value,omitempty"`
}

// BindRequest is the input for bind_device: cast a bind offer and, after
// the accept window, the matching confirm on behalf of a device.
type BindRequest struct {
	DeviceID string            `json:"device_id"`
	Offer    map[string]string `json:"offer"`
	Confirm  map[string]string `json:"confirm,omitempty"`
}

// SendPacketRequest is the input for send_packet: an arbitrary command
// put on the wire without interpretation.
type SendPacketRequest struct {
	DeviceID string `json:"device_id"`
	FromID   string `json:"from_id,omitempty"`
	Verb     string `json:"verb"`
	Code     string `json:"code"`
	Payload  string `json:"payload"`
}
