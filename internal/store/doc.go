// Package store persists production jobs, cache entries, and asset records
// in SQLite. It is the durable tier behind the content cache and the record
// source for the asset similarity index; the pipeline writes its checkpoints
// here after every stage.
package store
