package types

// ErrorEnvelope is the wire shape of every failure response. Error
// carries a stable code string; Detail is an optional human-readable
// elaboration for codes that allow one.
type ErrorEnvelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
