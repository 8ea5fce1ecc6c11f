// Package jwt encodes and decodes taskAuth session tokens in the compact HS256 format
// and keeps signature verification separate from expiry enforcement.
package jwt
