// Package api implements the local debug HTTP surface: queue inspection,
// job submission for tooling, and a health check. Handlers stay thin:
// they decode and validate requests, call into the scheduler, and shape
// responses, with no scheduling logic of their own.
package api
