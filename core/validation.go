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

import (
	"fmt"
	"strings"
)

// ValidateSignal validates a Signal according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - SourceType must be a known value
//   - Title or Description must be non-empty
//   - ResponseDueAt, when set, must not precede PublishedAt
//
// NOT validated (populated by the feature extractor):
//   - Vector, Terms, ContentHash (can be empty until extraction runs)
func ValidateSignal(signal *Signal) error {
	if signal == nil {
		return fmt.Errorf("%w: signal is nil", ErrInvalidSignal)
	}

	if signal.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, ErrEmptySignalID)
	}

	if err := ValidateSourceType(signal.SourceType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, err)
	}

	if strings.TrimSpace(signal.Title) == "" && strings.TrimSpace(signal.Description) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, ErrEmptySignalText)
	}

	if !signal.ResponseDueAt.IsZero() && !signal.PublishedAt.IsZero() &&
		signal.ResponseDueAt.Before(signal.PublishedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, ErrInvalidDueDate)
	}

	return nil
}

// ValidateSourceType validates that a SourceType has a known value.
func ValidateSourceType(t SourceType) error {
	if _, ok := sourceTypeNames[t]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidSourceType, t)
	}
	return nil
}
