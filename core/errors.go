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

// Domain validation errors
var (
	// ErrInvalidItem indicates an Item failed validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrEmptyItemID indicates the item ID field is empty.
	ErrEmptyItemID = errors.New("item id cannot be empty")

	// ErrEmptyTitle indicates the item Title field is empty.
	ErrEmptyTitle = errors.New("item title cannot be empty")

	// ErrEmptyBody indicates the item Body field is empty.
	ErrEmptyBody = errors.New("item body cannot be empty")

	// ErrInvalidSection indicates a Section failed validation.
	ErrInvalidSection = errors.New("invalid section")

	// ErrEmptySectionName indicates the section Name field is empty.
	ErrEmptySectionName = errors.New("section name cannot be empty")
)
