/*
Package types defines core data structures used throughout formpost.

# Overview

The types package provides shared type definitions for:
  - the file picked by the user (SelectedFile)
  - the outcome of one submission (Outcome)
  - raw transport results (UploadResult)
  - TLS configuration for the HTTP client

# Form Types

SelectedFile:
  - Optional handle on the file to upload
  - Original file name is preserved in the multipart part
  - Content is opened lazily at submit time

Snapshot:
  - Read-only copy of the form state
  - Handed to subscribers after every mutation

# Outcome Types

Outcome:
  - Tagged result of one submission attempt
  - Success carries the decoded payload
  - Error carries human-readable detail
  - Text holds the display rendering

UploadResult:
  - HTTP response data
  - Status, headers, body
  - Duration and size metrics
  - Transport error information
*/
package types
