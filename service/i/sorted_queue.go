package i

import "context"

// SortedQueue is a scored queue shared between API instances.
type SortedQueue interface {
	// Enqueue adds member with score to the queue under queueKey.
	Enqueue(ctx context.Context, queueKey string, score float64, member string) error
	// DequeTops pops up to amount members with the lowest scores.
	DequeTops(ctx context.Context, queueKey string, amount int64) ([]string, error)
	Count(ctx context.Context, queueKey string) int64
}
