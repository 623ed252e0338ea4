// Package fsmeta reads file metadata that package os does not expose
// portably.
package fsmeta
