// Package shared holds helpers used across package boundaries.
//
// The testutil subpackage carries the raw CMS fixtures and a recording
// slog handler shared by the service, transport and command tests.
package shared
