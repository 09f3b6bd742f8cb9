package exertion

import (
	"github.com/mwsobol/SORCER-sub002/core"
)

// SigType is the role of a signature within a routine.
type SigType string

const (
	// PRE signatures run before the process signature.
	PRE SigType = "PRE"

	// SRV is the process signature.
	SRV SigType = "SRV"

	// POST signatures run after the process signature.
	POST SigType = "POST"

	// APD signatures append their provider's results to the
	// context before anything else runs.
	APD SigType = "APD"
)

// Signature names an operation (the selector) of a service type,
// optionally of a specific provider.
type Signature struct {
	Selector     string           `json:"selector"`
	ServiceType  string           `json:"serviceType"`
	ProviderName string           `json:"providerName,omitempty" yaml:"providerName,omitempty"`
	Type         SigType          `json:"type,omitempty" yaml:",omitempty"`
	ReturnPath   *core.ReturnPath `json:"returnPath,omitempty" yaml:"returnPath,omitempty"`

	// Label names the signature as a fidelity select.  It
	// defaults to the selector.
	Label string `json:"label,omitempty" yaml:",omitempty"`
}

// Sig makes a SRV signature.
func Sig(selector, serviceType string) *Signature {
	return &Signature{
		Selector:    selector,
		ServiceType: serviceType,
		Type:        SRV,
	}
}

// Name implements fi.Named.
func (s *Signature) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Selector
}

func (s *Signature) sigType() SigType {
	if s.Type == "" {
		return SRV
	}
	return s.Type
}

func (s *Signature) String() string {
	acc := s.ServiceType + "#" + s.Selector
	if s.ProviderName != "" {
		acc = s.ProviderName + "@" + acc
	}
	return acc
}
