// Package connectors provides ContentSource implementations for the
// supported corpus types (filesystem, Google Drive, SharePoint, Notion,
// GitHub) and a factory that builds the configured one.
package connectors
