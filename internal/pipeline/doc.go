// Package pipeline sequences the stages of a hostcrawl run.
//
// A run is a list of steps (crawl, convert, assets) sharing one
// model.RunReport. Each step writes the section of the report it owns,
// and the pipeline records failures and cancellation on the report so
// that a partial run can still be reported and stored in history.
package pipeline
