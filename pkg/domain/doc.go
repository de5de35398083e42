// Package domain holds the shared value types of the scriptdeck core: run
// states and records, reuse policies, status events, and the error taxonomy
// returned at the lifecycle boundary.
package domain
