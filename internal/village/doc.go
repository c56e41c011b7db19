// Package village implements the village bank domain: group lifecycle and
// membership (Manager), the invite workflow (Invites) and read composition
// (Query). Everything persists through storage.Store; errors returned are
// the sentinels in errors.go, *ValidationError or *InfraError.
package village
