// Package store declares the read model for harvest runs and an in-memory
// implementation that follows the progress event stream.
package store
