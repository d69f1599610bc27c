package protocol

import "encoding/json"

// HELLO (controller -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ControllerName  string `json:"controller_name"`
	RunID           string `json:"run_id,omitempty"`
}

// WELCOME (server -> controller)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	RunID           string      `json:"run_id"`
	WorldParams     WorldParams `json:"world_params"`
	Catalogs        DataDigests `json:"catalogs"`
	Operations      []string    `json:"operations"`
}

type WorldParams struct {
	Seed              int64  `json:"seed"`
	DefaultLocationID string `json:"default_location_id"`
	Week              int    `json:"week"`
	Day               string `json:"day"`
	Time              string `json:"time"`
}

type DataDigests struct {
	MapDigest      string `json:"map_digest"`
	CoursesDigest  string `json:"courses_digest"`
	ScenarioDigest string `json:"scenario_digest"`
}

// OP (controller -> server): one world operation.
type OpMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Seq             uint64          `json:"seq"`
	Op              string          `json:"op"`
	Args            json.RawMessage `json:"args,omitempty"`
}

// RESULT (server -> controller): outcome of the matching OP.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Result          Result `json:"result"`
}
