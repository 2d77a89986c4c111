package contractchecker

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// contractCheckerSchema defines the configuration schema.
var contractCheckerSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the contract-checker component.
type Config struct {
	// StreamName is the JetStream stream for consuming requests and publishing results.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream for check requests,category:basic,default:DOCS"`

	// ConsumerName is the durable consumer name for request consumption.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name for request consumption,category:basic,default:contract-checker"`

	// Workers bounds the per-run element worker pool. Zero means one per CPU.
	Workers int `json:"workers" schema:"type:int,description:Element worker pool size (0 = CPUs),category:advanced,default:0"`

	// StrictRaises escalates undocumented-raise findings to errors.
	StrictRaises bool `json:"strict_raises" schema:"type:bool,description:Escalate undocumented raises to errors,category:basic,default:false"`

	// RedundancySensitivity is the restatement detection level (low or high).
	RedundancySensitivity string `json:"redundancy_sensitivity" schema:"type:string,description:Redundancy detection sensitivity (low or high),category:advanced,default:low"`

	// ContractMandatoryForClasses requires a CONTRACTS block on every class.
	ContractMandatoryForClasses bool `json:"contract_mandatory_for_classes" schema:"type:bool,description:Require CONTRACTS on every class,category:advanced,default:false"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:            "DOCS",
		ConsumerName:          "contract-checker",
		RedundancySensitivity: "low",
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "check-requests",
					Type:        "jetstream",
					Subject:     "doc.trigger.contract-checker",
					StreamName:  "DOCS",
					Description: "Receive contract check requests",
					Required:    true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "check-results",
					Type:        "nats",
					Subject:     "doc.result.contract-checker.>",
					Description: "Publish contract check results",
					Required:    false,
				},
			},
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	switch c.RedundancySensitivity {
	case "", "low", "high":
	default:
		return fmt.Errorf("redundancy_sensitivity must be low or high")
	}
	return nil
}
