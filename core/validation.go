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

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOffline:
		return ModeOffline, nil
	case ModeOnline:
		return ModeOnline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// ValidateMode checks that m is one of the known modes.
func ValidateMode(m Mode) error {
	if m != ModeOffline && m != ModeOnline {
		return fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
	}
	return nil
}

// ParseQueryType parses a query type name case-insensitively.
func ParseQueryType(s string) (QueryType, error) {
	needle := QueryType(strings.ToLower(strings.TrimSpace(s)))
	for _, qt := range QueryTypes {
		if qt == needle {
			return qt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidQueryType, s)
}

// ValidateQuery validates a Query according to domain rules.
//
// Validation rules:
//   - Text must not be empty after trimming
//   - every history turn must carry a known Role
//
// Empty history turns are allowed; the generator skips them.
func ValidateQuery(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}
	for i, turn := range q.History {
		switch turn.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: turn %d has role %q", ErrInvalidRole, i, string(turn.Role))
		}
	}
	return nil
}
