// Package testutil holds fixtures shared by package tests: archive and
// live-store builders, a recording publisher, and deterministic clock and
// run ID sources.
package testutil
