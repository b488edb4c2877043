// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Error taxonomy shared across the matching engine.
var (
	// ErrInvalidInput indicates caller-supplied text is missing or malformed.
	// Maps to HTTP 400 at the wire boundary; not retryable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates feature computation failed, e.g. the embedding
	// provider timed out. Retryable by the caller.
	ErrExtraction = errors.New("feature extraction failed")

	// ErrInvalidArgument indicates a programming or usage error in a query
	// shape, such as a non-positive k. Not retryable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable wraps any dependency failure for the wire boundary so
	// callers have a single "try again later" failure kind. Maps to HTTP 503.
	ErrUnavailable = errors.New("match service unavailable")
)

// Domain validation errors
var (
	// ErrInvalidSignal indicates a Signal failed validation.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrEmptySignalID indicates the Id field is empty.
	ErrEmptySignalID = errors.New("signal id cannot be empty")

	// ErrInvalidSourceType indicates an invalid SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrEmptySignalText indicates both Title and Description are empty.
	ErrEmptySignalText = errors.New("signal must have a title or description")

	// ErrInvalidDueDate indicates ResponseDueAt precedes PublishedAt.
	ErrInvalidDueDate = errors.New("response due date cannot precede publication")
)
