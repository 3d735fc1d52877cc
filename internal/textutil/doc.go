// Package textutil provides text normalization and edit-distance similarity
// used by the content cache and the asset similarity index.
//
// Similarity is normalized Levenshtein: (maxLen - distance) / maxLen over
// runes, yielding a score in [0, 1] where 1 means identical strings.
package textutil
