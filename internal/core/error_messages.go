// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with a code that
// users can quote to support staff.
//
// Codes are grouped by category:
//
// # Import Job Errors (IMP001-IMP099)
//
//	IMP001 - Job not found: The import job does not exist in this organization
//	         Patterns: "import job not found"
//	IMP002 - Wrong status: The job's current status does not allow the operation
//	         Patterns: "does not allow this operation"
//	IMP003 - No source file: The job was created without a file
//	         Patterns: "no source file stored"
//	IMP004 - Cancelled: The import was cancelled by a user
//	         Patterns: "cancelled by user"
//	IMP005 - Interrupted: The server stopped while the import was running
//	         Patterns: "interrupted by server shutdown", "execution interrupted"
//	IMP006 - Import timeout: The import ran longer than allowed
//	         Patterns: "import timed out"
//	IMP007 - System busy: Too many imports are running
//	         Patterns: "too many imports"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	FILE002 - Invalid CSV: The file could not be read as CSV
//	FILE003 - Invalid spreadsheet: The file could not be read as XLSX
//	FILE004 - Unsupported format: Only .csv and .xlsx are accepted
//	FILE005 - Empty file: No header row was found
//	FILE006 - No data sheet: The workbook has only an Instructions sheet
//	FILE007 - No file: The request carried no file
//
// # Input Errors (VAL001-VAL099)
//
//	VAL001 - Unknown entity type
//	VAL002 - Unknown template format
//	VAL003 - Unknown job status
//	VAL004 - Missing filename
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            DB004 - Connection refused
//	DB002 - Unique constraint        DB005 - Connection reset
//	DB003 - Foreign key              DB006 - Timeout
//	                                 DB007 - Deadlock
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: "context canceled"
//	REQ002 - Request timeout: "context deadline exceeded"
//	REQ003 - Unauthorized: "invalid api key"
//	RATE001 - Too many requests: "rate limit"
//
// # Unknown Errors
//
//	ERR000 - Anything not matched above. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains. The first
// match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Import jobs
	{"import job not found", UserMessage{"Import job not found", "Check the job ID and organization", "IMP001"}},
	{"does not allow this operation", UserMessage{"The import job is not in the right state for this action", "Refresh the job to see its current status", "IMP002"}},
	{"no source file stored", UserMessage{"This import job has no file attached", "Create a new import with a file upload", "IMP003"}},
	{"cancelled by user", UserMessage{"The import was cancelled", "Start a new import when ready", "IMP004"}},
	{"interrupted by server shutdown", UserMessage{"The import was interrupted by a server restart", "Create the import again", "IMP005"}},
	{"execution interrupted", UserMessage{"The import was interrupted by a server restart", "Create the import again", "IMP005"}},
	{"import timed out", UserMessage{"The import took too long and was stopped", "Split the file into smaller imports", "IMP006"}},
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP007"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller files", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Check for unbalanced quotes and save the file as UTF-8 CSV", "FILE002"}},
	{"invalid spreadsheet", UserMessage{"File is not a valid Excel workbook", "Save the file as .xlsx and try again", "FILE003"}},
	{"unsupported file format", UserMessage{"This file type is not supported", "Upload a .csv or .xlsx file", "FILE004"}},
	{"no header row found", UserMessage{"The uploaded file is empty", "Download the template and fill in at least the header row", "FILE005"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Download the template and fill in at least the header row", "FILE005"}},
	{"no data sheet", UserMessage{"The workbook has no data sheet", "Put your data in the first sheet of the template", "FILE006"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV or XLSX file to upload", "FILE007"}},

	// Input
	{"unknown entity type", UserMessage{"Unknown import type", "Use companies, contacts or activities", "VAL001"}},
	{"unknown template format", UserMessage{"Unknown template format", "Use csv or xlsx", "VAL002"}},
	{"unknown job status", UserMessage{"Unknown status filter", "Use queued, validating, validated, processing, completed, failed or cancelled", "VAL003"}},
	{"filename is required", UserMessage{"A filename is required", "Provide the name of the file being imported", "VAL004"}},

	// Database constraints
	{"duplicate key", UserMessage{"A record with this ID already exists", "Retry the import; if it persists contact support", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries in your file", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review your data for duplicate key values", "DB002"}},
	{"foreign key constraint", UserMessage{"Referenced record does not exist", "Ensure parent records are imported first", "DB003"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Ensure parent records are imported first", "DB003"}},

	// Database connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Requests
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "REQ002"}},
	{"invalid api key", UserMessage{"Missing or invalid API key", "Send a valid key in the X-API-Key header", "REQ003"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// The first pattern found in the lowercased error text wins; unmatched
// errors get ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
