// Package ports defines the interfaces through which the scriptdeck core
// talks to the outside world: execution surfaces, user confirmation, and run
// history persistence. Adapters implement these; the core depends only on
// the contracts.
package ports
