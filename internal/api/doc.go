// Package api hosts the read-only REST handlers for operator access to harvest
// runs. Routes, mounted next to /metrics and /healthz:
//   - GET /api/runs?status=&limit=&offset= lists recent runs, newest first.
//   - GET /api/runs/{run_id} returns one run.
package api
