/*
Package executor sends the upload request.

# Overview

The executor package owns the only network call formpost makes:
  - Multipart body construction
  - A single POST to the upload endpoint
  - TLS/mTLS client configuration

# Wire Contract

The multipart body carries exactly two fields:
  - excelFile: the selected file's bytes, original file name preserved
  - jsonData: the JSON text exactly as typed, never re-parsed

The Content-Type header is the multipart writer's own
(multipart/form-data with its boundary); it is never set by hand.

# Results

Transport failures are reported in UploadResult.Error rather than as a Go
error, so callers can show them verbatim. A Go error is only returned when
the request cannot be built at all (unreadable file, malformed URL).
*/
package executor
