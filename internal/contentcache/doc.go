// Package contentcache memoizes expensive generation output per channel.
//
// Reads hit a fast in-process tier first, then the durable tier. Expiry is
// lazy: entries past their TTL are treated as misses at read time and removed
// best-effort. Concurrent misses on the same key share one in-flight
// generation instead of duplicating the external call.
//
// Fuzzy retrieval compares normalized keys with Levenshtein similarity and
// returns the best-scoring candidate within a bounded candidate set, never
// merely the first above the threshold.
package contentcache
