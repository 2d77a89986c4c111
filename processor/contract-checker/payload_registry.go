package contractchecker

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"

	"github.com/c360studio/contractspec/report"
)

// CheckRequest is published to doc.trigger.contract-checker. It names a
// source root to analyze and optional per-request rule overrides.
type CheckRequest struct {
	// RequestID correlates the eventual result with this request.
	RequestID string `json:"request_id"`

	// Root is the source directory to analyze.
	Root string `json:"root"`

	// Paths optionally restricts analysis to glob patterns under Root.
	Paths []string `json:"paths,omitempty"`

	// Synthesize enables documentation regeneration for non-compliant
	// elements.
	Synthesize bool `json:"synthesize,omitempty"`

	// StrictRaises overrides the component's configured value when set.
	StrictRaises *bool `json:"strict_raises,omitempty"`
}

// Schema implements message.Payload.
func (p *CheckRequest) Schema() message.Type {
	return CheckRequestType
}

// Validate implements message.Payload.
func (p *CheckRequest) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if p.Root == "" {
		return fmt.Errorf("root is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *CheckRequest) MarshalJSON() ([]byte, error) {
	type Alias CheckRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *CheckRequest) UnmarshalJSON(data []byte) error {
	type Alias CheckRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// CheckResult is published to doc.result.contract-checker.<request_id>. It
// carries the run summary and the per-element records.
type CheckResult struct {
	RequestID string          `json:"request_id"`
	Root      string          `json:"root"`
	RunID     string          `json:"run_id"`
	Summary   report.Summary  `json:"summary"`
	Records   []report.Record `json:"records"`

	// Graph carries the analyzed element trees as vocabulary triples for
	// downstream graph consumers.
	Graph []message.Triple `json:"graph,omitempty"`

	// Error is set when the run aborted before producing records.
	Error string `json:"error,omitempty"`
}

// Schema implements message.Payload.
func (p *CheckResult) Schema() message.Type {
	return CheckResultType
}

// Validate implements message.Payload.
func (p *CheckResult) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *CheckResult) MarshalJSON() ([]byte, error) {
	type Alias CheckResult
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *CheckResult) UnmarshalJSON(data []byte) error {
	type Alias CheckResult
	return json.Unmarshal(data, (*Alias)(p))
}

// CheckRequestType is the message type for contract check requests.
var CheckRequestType = message.Type{
	Domain:   "doc",
	Category: "contract-check-request",
	Version:  "v1",
}

// CheckResultType is the message type for contract check results.
var CheckResultType = message.Type{
	Domain:   "doc",
	Category: "contract-check-result",
	Version:  "v1",
}

// RegisterPayloads registers the contract-check payload types with the
// supplied registry. Called at process bootstrap, before any message is
// decoded.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "doc",
		Category:    "contract-check-request",
		Version:     "v1",
		Description: "Contract check request naming a source root to analyze",
		Factory:     func() any { return &CheckRequest{} },
	}); err != nil {
		return fmt.Errorf("register CheckRequest: %w", err)
	}
	if err := reg.Register(&payloadregistry.Registration{
		Domain:      "doc",
		Category:    "contract-check-result",
		Version:     "v1",
		Description: "Contract check result with run summary and per-element records",
		Factory:     func() any { return &CheckResult{} },
	}); err != nil {
		return fmt.Errorf("register CheckResult: %w", err)
	}
	return nil
}
