// Package password hashes and verifies user passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the parameters from the stored hash, so hashes minted under an
// older Config keep verifying after the Config is tightened. NeedsRehash reports when a
// stored hash is weaker than the current Config.
package password
