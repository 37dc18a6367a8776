// Package ratelimit holds the two admission controls shared by every
// pipeline instance.
//
// Bucket paces outbound queries: a token bucket of capacity C refilled with
// one permit every minute/C. Gate caps how many pipelines run at once.
// Both block until admitted or until the caller's context ends.
package ratelimit
