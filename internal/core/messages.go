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

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Patterns are matched with strings.Contains and the first
// match wins, so more specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Review the failed rows for duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "A referenced record does not exist",
			Action:  "Ensure the related records exist first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// Import configuration errors
	{
		pattern: "missing required field mappings",
		msg: UserMessage{
			Message: "The profile does not map every required field",
			Action:  "Edit the profile and map the listed fields",
			Code:    "IMP001",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "The file is missing required columns",
			Action:  "Check that the header row names every required column",
			Code:    "IMP002",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "The profile maps a column the file does not have",
			Action:  "Check the profile's column indexes against the file",
			Code:    "IMP003",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row and data",
			Code:    "IMP004",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has headers but no data",
			Action:  "Please upload a CSV file with at least one data row",
			Code:    "IMP004",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "A date value did not match the expected notation",
			Action:  "Check the profile's date format against the file",
			Code:    "IMP005",
		},
	},

	// Upload and request errors
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "Too many imports are in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is the fallback when no pattern matches. Support staff
// should check application logs for the original error when users report
// ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The
// first matching pattern wins; unmatched errors get the ERR000 fallback.
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

// FormatUserError creates a formatted error string for display, in the
// form "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
