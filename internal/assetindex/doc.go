// Package assetindex scores and ranks previously generated media assets so
// the pipeline can reuse them instead of paying for regeneration. Scores
// combine Levenshtein text similarity with exact scene and shot matches;
// reuse is recorded to bias future popularity ranking and to audit savings.
package assetindex
