// Package detect wraps the external classification API for the four
// content modalities (text, image, video, voice) plus URL checks.
//
// The client deliberately enforces no timeout and performs no retry:
// deadlines belong to the scan orchestrator, which races each item's
// classification against a per-kind timeout, and retry policy belongs
// to whoever triggered the scan. Non-2xx responses degrade to a nil
// result rather than an error, mirroring the API contract that an
// unclassifiable item is simply not a finding.
package detect
