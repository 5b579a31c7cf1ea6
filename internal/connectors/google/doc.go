// Package google provides shared infrastructure for the Google Drive
// content source.
//
// This package contains:
//   - OAuth client construction from a credentials JSON file plus a
//     persisted token file
//   - Error handling for common Google API errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// The Drive source uses the read-only scope:
//   - https://www.googleapis.com/auth/drive.readonly
package google
