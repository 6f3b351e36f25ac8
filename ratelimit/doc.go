// Package ratelimit paces calls to hosted model APIs.
//
// Each resource ("llm", "embedding") has a token bucket refilled at
// capacity/window. A call takes one token; when the bucket is empty Acquire
// waits for the next refill or for the context to end. The limiter never
// retries anything, it only delays the first attempt.
//
//	limiter := ratelimit.New()
//	limiter.SetCapacity(ratelimit.ResourceLLM, 50, time.Minute)
//
//	if err := limiter.Acquire(ctx, ratelimit.ResourceLLM); err != nil {
//	    return err // TIMEOUT or CANCELED
//	}
package ratelimit
