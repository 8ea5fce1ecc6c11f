// Package store is a SQLite implementation of the principal and ownership
// providers consumed by taskAuth.Engine.
//
// Passwords are stored as argon2id PHC strings produced by the password package.
// A task has exactly one owner, recorded in users_tasks.
package store
