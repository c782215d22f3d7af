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

import "fmt"

// ValidateItem validates an Item according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Title must not be empty
//
// NOT validated (populated later in the fetch path):
//   - Body (catalog entries carry metadata only until the body is fetched)
//   - ContentHash (computed once the body is available)
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}

	if item.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyItemID)
	}

	if item.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyTitle)
	}

	return nil
}

// ValidateItemBody validates that an Item is complete enough to ingest.
// In addition to the ValidateItem rules the body must be present.
func ValidateItemBody(item *Item) error {
	if err := ValidateItem(item); err != nil {
		return err
	}

	if item.Body == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyBody)
	}

	return nil
}

// ValidateSection validates a Section according to domain rules.
func ValidateSection(section *Section) error {
	if section == nil {
		return fmt.Errorf("%w: section is nil", ErrInvalidSection)
	}

	if section.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSection, ErrEmptySectionName)
	}

	return nil
}
