// Package httputil provides the HTTP plumbing shared by repository clients.
//
// # Overview
//
//   - [NewTransport]/[NewClient]: DNS-cached dialing, connect and read
//     timeouts, proxy selection with Proxy-Authorization
//   - [Proxy]: proxy definitions with non-proxy host patterns
//   - [Policy]/[Retry]: automatic retry with exponential backoff
//
// # Proxies
//
// The first active [Proxy] whose protocol serves the target scheme and
// whose non-proxy patterns do not match the host is used:
//
//	client := httputil.NewClient(httputil.TransportOptions{
//	    Proxies: []httputil.Proxy{{
//	        ID: "corp", Active: true, Host: "proxy.corp", Port: 3128,
//	        Username: "build", Password: secret,
//	        NonProxyHosts: []string{"*.corp.example.com|localhost"},
//	    }},
//	})
//
// # Retry
//
// [Policy.Do] wraps requests with automatic retry for transient failures.
// Only errors wrapped in [RetryableError] are retried, and a Retry-After
// hint carried in the error stretches the next wait up to MaxDelay:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
//	err := httputil.DefaultPolicy.Do(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    if resp.StatusCode == http.StatusTooManyRequests {
//	        return &httputil.RetryableError{Err: errTooMany, After: httputil.RetryAfter(resp)}
//	    }
//	    ...
//	})
//
// # Configuration
//
// Default settings:
//
//   - Connect timeout: 20 seconds
//   - Read (response header) timeout: 60 seconds
//   - Max retries: 3
//   - Base backoff: 1 second
//   - Longest single wait: 30 seconds
package httputil
