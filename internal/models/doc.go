// Package models defines the core domain models for the village bank.
//
// # Aggregates
//
//   - Group: a savings group. Owns exactly one Constitution and one
//     GroupAccount, both created in the same transaction as the group.
//   - Membership: links a user id to a group. At most one per (group, user).
//   - Cycle: a bounded savings period. At most one active cycle per group.
//   - Saving / Loan: ledger entries recorded against a cycle.
//   - Invite: a single-use join token for a group.
//
// # Conventions
//
//  1. Money amounts are int64 minor units (e.g. cents) so sums are exact.
//  2. Timestamps are Unix seconds.
//  3. Relationships use ID strings instead of pointers.
//  4. Users are identified by the opaque id carried in the bearer token;
//     user profiles and credentials live outside this service.
package models
