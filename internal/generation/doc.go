// Package generation defines the external generator boundary: the Generator
// contract the pipeline drives, the shared error taxonomy for classifying
// stage failures, and provider plumbing (HTTP client, fallback chaining,
// bounded batch generation).
package generation
