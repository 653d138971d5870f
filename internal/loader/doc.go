// Package loader ingests harvested result documents into a listing store.
// A document can come from a cloud object, a local file, or a Pub/Sub
// object notification; each record is inserted idempotently keyed by
// (platform, job_id) and stamped with the processing day.
package loader
