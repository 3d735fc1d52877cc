// Package production defines the production job data model and its stage
// state machine. Transitions are validated by a pure function so illegal
// moves (for example Completed back to MediaGenerating) are rejected before
// any persistence happens.
package production
