// Package password implements password hashing and verification.
//
// # Output format
//
// New hashes use argon2id by default, encoded as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt strings ($2a$, $2b$, $2y$) are verified so credentials seeded by the
// legacy user service keep working. [Hasher.NeedsUpgrade] reports hashes that
// should be rewritten with the preferred algorithm after a successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Length policy is enforced
// by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other authcore package.
//   - Log plaintext passwords.
package password
