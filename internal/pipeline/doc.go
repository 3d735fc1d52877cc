// Package pipeline drives a production job through its ordered stages:
// script, fanned-out media generation, merge, and thumbnail. Each stage
// consults the content cache and asset index before invoking generation,
// and a checkpoint is persisted after every stage so an interrupted run
// can resume without repeating completed work.
package pipeline
