package contractchecker

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface required for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the contract-checker component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "contract-checker",
		Factory:     NewComponent,
		Schema:      contractCheckerSchema,
		Type:        "processor",
		Protocol:    "doc",
		Domain:      "contractspec",
		Description: "Validates and regenerates contract documentation for source trees",
		Version:     "0.1.0",
	})
}
