// Package credstore provides authcore.CredentialStore implementations.
//
// [Postgres] reads and writes the users table created by the embedded goose
// migrations. [Memory] keeps users in a map and is meant for tests and the
// authd development mode.
//
// Lookups that match no user return an error wrapping
// authcore.ErrCredentialNotFound.
package credstore
