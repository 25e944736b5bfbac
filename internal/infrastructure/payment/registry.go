package payment

import (
	"fmt"
	"sort"

	"github.com/shop/backend/internal/domain/payment"
)

// GatewayRegistry resolves gateways by provider. The registry is built
// once at startup and read-only afterwards.
type GatewayRegistry struct {
	gateways map[payment.Provider]payment.Gateway
}

// NewGatewayRegistry creates a registry holding the given gateways
func NewGatewayRegistry(gateways ...payment.Gateway) *GatewayRegistry {
	r := &GatewayRegistry{
		gateways: make(map[payment.Provider]payment.Gateway, len(gateways)),
	}
	for _, g := range gateways {
		r.gateways[g.Provider()] = g
	}
	return r
}

// Gateway returns the gateway registered for the provider
func (r *GatewayRegistry) Gateway(provider payment.Provider) (payment.Gateway, error) {
	g, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payment.ErrGatewayNotConfigured, provider)
	}
	return g, nil
}

// Providers lists the providers with a registered gateway
func (r *GatewayRegistry) Providers() []payment.Provider {
	providers := make([]payment.Provider, 0, len(r.gateways))
	for p := range r.gateways {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

var _ payment.Registry = (*GatewayRegistry)(nil)
