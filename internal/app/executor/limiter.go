package executor

import (
	"context"
	"fmt"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"golang.org/x/time/rate"
)

// RateLimitedClient spaces calls to the runner with a token bucket shared by
// every session in the process.
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

var _ Client = (*RateLimitedClient)(nil)

func NewRateLimitedClient(next Client, perSecond float64, burst int) *RateLimitedClient {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimitedClient{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (c *RateLimitedClient) Execute(ctx context.Context, source, languageID, stdin string) model.ExecutionResult {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.ExecutionResult{Error: fmt.Sprintf("waiting for execution slot: %v", err)}
	}
	return c.next.Execute(ctx, source, languageID, stdin)
}
