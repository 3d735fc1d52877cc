// Package logging constructs the shared slog logger and provides attribute
// helpers plus context carriage for job, channel, and stage fields.
package logging
