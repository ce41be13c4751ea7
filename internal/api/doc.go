// Package api implements the resilient upstream trade-feed client.
//
// The client owns a ranked list of candidate hosts. It probes them in order
// and pins the first healthy one; a pinned host that starts failing with
// server-side or network errors triggers failover to the next candidate,
// and whichever host then succeeds becomes the new pin. Client-side (4xx)
// errors are surfaced immediately and never trigger failover.
//
// Whether the upstream supports server-side min_ts filtering is detected at
// runtime and cached for the life of the process. The client caches only
// the pinned-host identity and that capability flag, never trade data.
package api
