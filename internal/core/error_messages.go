// Package core runs the analysis pipeline (load, extract, count) and maps its
// failures to messages a dashboard user can act on.
//
// # Error Codes Reference
//
// Codes are shown next to every error alert so a user can quote them.
//
// # Dataset Errors (FILE001-FILE099)
//
//	FILE001 - Dataset not found: the transaction file does not exist
//	          Action: Place Groceries_dataset.csv next to the server or set DATASET_PATH
//	          Patterns: "dataset not found", "no such file"
//
//	FILE002 - Invalid CSV: the file could not be parsed
//	          Action: Check that the file is semicolon-delimited with one header row
//	          Patterns: "invalid csv"
//
//	FILE003 - Empty file: the file has no header row
//	          Action: Provide a dataset with a header and transaction rows
//	          Patterns: "empty file"
//
//	FILE004 - Permission denied: the server cannot read the file
//	          Action: Fix the file permissions
//	          Patterns: "permission denied"
//
// # Analysis Errors (ITEM001, FREQ001)
//
//	ITEM001 - No item data: no concat column and no F1..F164 slot columns
//	          Action: Check the column names and data format of the CSV
//	          Patterns: "no item data"
//
//	FREQ001 - No frequency data: the item column holds no items
//	          Action: Check the item column of the CSV
//	          Patterns: "no frequency data"
//
// # History Errors (HIST001-HIST002)
//
//	HIST001 - History store unavailable
//	HIST002 - History run not found
//
// # Request Errors (REQ001-REQ002, RATE001-RATE002)
//
//	REQ001  - Request cancelled ("context canceled")
//	REQ002  - Request timed out ("context deadline exceeded")
//	RATE001 - Too many requests ("rate limit")
//	RATE002 - All analysis slots busy ("too many concurrent analyses")
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come first.
package core

import (
	"errors"
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

var (
	msgNotFound = UserMessage{
		Message: "Dataset file not found",
		Action:  "Place Groceries_dataset.csv next to the server or set DATASET_PATH",
		Code:    "FILE001",
	}
	msgNoItems = UserMessage{
		Message: "Could not find or process the item data from the CSV",
		Action:  "Please check the column names and data format",
		Code:    "ITEM001",
	}
	msgNoFrequencies = UserMessage{
		Message: "Nessun dato sulla frequenza da mostrare",
		Action:  "Controlla la colonna degli articoli nel file CSV",
		Code:    "FREQ001",
	}
)

var errorPatterns = []errorPattern{
	// Dataset
	{pattern: "dataset not found", msg: msgNotFound},
	{pattern: "no such file", msg: msgNotFound},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The dataset is not a valid CSV",
			Action:  "Check that the file is UTF-8, semicolon-delimited, with one header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The dataset is empty",
			Action:  "Provide a dataset with a header and transaction rows",
			Code:    "FILE003",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The dataset cannot be read",
			Action:  "Fix the file permissions",
			Code:    "FILE004",
		},
	},

	// Analysis
	{pattern: "no item data", msg: msgNoItems},
	{pattern: "no frequency data", msg: msgNoFrequencies},

	// History
	{
		pattern: "history store unavailable",
		msg: UserMessage{
			Message: "Run history is unavailable",
			Action:  "Check HISTORY_DRIVER and the database settings",
			Code:    "HIST001",
		},
	},
	{
		pattern: "history run not found",
		msg: UserMessage{
			Message: "Run not found",
			Action:  "Pick a run from /api/history",
			Code:    "HIST002",
		},
	},

	// Request
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "too many concurrent analyses",
		msg: UserMessage{
			Message: "The server is busy computing other analyses",
			Action:  "Please try again in a few seconds",
			Code:    "RATE002",
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

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage; a UserError keeps its message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.User
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to users.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and keeps it for logging. Returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
