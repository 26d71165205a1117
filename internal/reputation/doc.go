// Package reputation classifies page hostnames against static
// allow/deny lists of known misinformation and trusted news domains.
// The check is a pure function with no I/O; rendering of the resulting
// banner is the presenter's job.
package reputation
