package lifecycle

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/segyhp/travel-loan-engine/internal/domain"
)

// VerificationOracle decides whether the applicant's national id matches
// their registered mobile
type VerificationOracle interface {
	Verify(ctx context.Context, req *domain.LoanRequest) bool
}

type probabilisticOracle struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewProbabilisticOracle passes a check with the given probability
func NewProbabilisticOracle(successRate float64, seed uint64) VerificationOracle {
	return &probabilisticOracle{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		successRate: successRate,
	}
}

func (o *probabilisticOracle) Verify(_ context.Context, _ *domain.LoanRequest) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64() < o.successRate
}

// FixedOracle always returns the same outcome
type FixedOracle bool

func (o FixedOracle) Verify(context.Context, *domain.LoanRequest) bool {
	return bool(o)
}

// OracleFunc adapts a function to VerificationOracle
type OracleFunc func(ctx context.Context, req *domain.LoanRequest) bool

func (f OracleFunc) Verify(ctx context.Context, req *domain.LoanRequest) bool {
	return f(ctx, req)
}
