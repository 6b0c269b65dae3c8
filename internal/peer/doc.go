// Package peer is the outbound transport to the sibling service.
//
// Every call is stamped with X-Replicated: true and the shared bearer
// token, so the peer applies the mutation locally and does not send it
// back. Calls are bounded by a connect timeout and an overall read
// timeout and are retried a fixed number of times, with a fixed backoff,
// on transport failures and 5xx responses only. A 4xx response is final.
//
// Failures are returned as *Error, which maps onto the domain error
// taxonomy through Category.
package peer
