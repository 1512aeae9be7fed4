// Package jwt issues and verifies the short-lived subject tokens that carry
// a user id into permission checks. Tokens never carry permission state;
// the engine always resolves that from the user provider and cache.
package jwt
