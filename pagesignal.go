// Package pagesignal retrieves untrusted, user-supplied web pages and
// reduces each one to a compact signal: the page title, its primary
// heading and a cleaned plain-text snippet.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., http/, goquery/, chi/).
package pagesignal
