package stream

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Endpoint roles. Relay is preferred: it routes through a trusted
// intermediary and sidesteps cross-origin and geographic restrictions on the
// upstream. Direct talks straight to the exchange and serves as fallback.
// Neither is permanent; the switch policy alternates between them under
// sustained failure because either side may recover independently.
// -----------------------------------------------------------------------------

type Endpoint int

const (
	EndpointRelay Endpoint = iota
	EndpointDirect
)

func (e Endpoint) String() string {
	if e == EndpointDirect {
		return "direct"
	}
	return "relay"
}

// -----------------------------------------------------------------------------
// EndpointResolver builds connection URLs from the configured templates.
// Pure string templating; no other network configuration is exposed.
// -----------------------------------------------------------------------------

type EndpointResolver struct {
	relayTemplate  string
	directTemplate string
}

// -----------------------------------------------------------------------------

func NewEndpointResolver(relayTemplate, directTemplate string) *EndpointResolver {
	return &EndpointResolver{
		relayTemplate:  relayTemplate,
		directTemplate: directTemplate,
	}
}

// -----------------------------------------------------------------------------

// URL renders the connection URL for the given role. The relay takes the
// symbol as-is; the direct upstream wants the lower-cased trading pair.
func (r *EndpointResolver) URL(e Endpoint, symbol string) string {
	if e == EndpointDirect {
		return fmt.Sprintf(r.directTemplate, strings.ToLower(symbol))
	}
	return fmt.Sprintf(r.relayTemplate, symbol)
}
