// Package interceptor decides what happens to a request that ended in "not
// found".
//
// The Engine runs a fixed sequence of guards and stops at the first one that
// applies:
//
//  1. Handler mode: Off, or RemoteOnly for a local client, disables handling.
//  2. Resource filter: static asset extensions are ignored.
//  3. Classifier: only a 404 status or a not-found error is handled.
//  4. Loop guard: requests carrying the 404; marker, or addressed to the
//     fallback page itself, are left alone.
//  5. Resolver: a saved, non-self redirect is issued as a permanent redirect.
//
// Otherwise the miss is logged (when logging is on) and the request is
// transferred to the fallback page with status 404.
//
// The engine talks to its surroundings only through the RedirectStore,
// MissLogger and Host interfaces. An HTTP implementation of Host lives in
// pkg/proxy/middleware.
package interceptor
