// Package degrade holds the canned fallback payloads bound to
// well-known services at startup, and composes them with the response
// cache into never-failing degradation chains.
package degrade
