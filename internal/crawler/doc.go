// Package crawler implements the listing harvest pipeline: page discovery,
// windowed detail fetching and hand-off of the finished batch to result sinks.
package crawler
