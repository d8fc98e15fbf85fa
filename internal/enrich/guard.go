package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/resilience"
	"github.com/sells-group/leadsnap/pkg/zoominfo"
)

// guardedVendor shares one circuit breaker across every vendor call so a
// sustained outage fails the batch fast instead of being hammered from each
// goroutine in the fan-out. ErrCircuitOpen classifies transient, so guarded
// failures redeliver instead of settling companies on error.
type guardedVendor struct {
	inner   zoominfo.Client
	breaker *resilience.CircuitBreaker
}

// GuardVendor wraps client with a circuit breaker. Only transient failures
// trip it; vendor "not found" answers pass through untouched.
func GuardVendor(client zoominfo.Client) zoominfo.Client {
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.ShouldTrip = resilience.IsTransient
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("enrich: vendor circuit state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return &guardedVendor{inner: client, breaker: resilience.NewCircuitBreaker(cfg)}
}

func (g *guardedVendor) SearchCompany(ctx context.Context, in zoominfo.SearchCompanyInput) ([]zoominfo.CompanyResult, error) {
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) ([]zoominfo.CompanyResult, error) {
		return g.inner.SearchCompany(ctx, in)
	})
}

func (g *guardedVendor) SearchContacts(ctx context.Context, companyID int64) ([]zoominfo.ContactResult, error) {
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) ([]zoominfo.ContactResult, error) {
		return g.inner.SearchContacts(ctx, companyID)
	})
}

func (g *guardedVendor) EnrichContacts(ctx context.Context, personIDs []int64, outputFields []string) ([]zoominfo.EnrichedContact, error) {
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) ([]zoominfo.EnrichedContact, error) {
		return g.inner.EnrichContacts(ctx, personIDs, outputFields)
	})
}
