// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import "errors"

var (
	// ErrUnknownMethod is returned for a method outside the supported
	// set. Unlike backend outages, this is a caller bug and never
	// degrades to another strategy.
	ErrUnknownMethod = errors.New("grounding: unknown method, use 'keyword', 'semantic', 'judge', or 'hybrid'")

	// ErrJudgeUnavailable is returned when the judge method is
	// requested but no text generator was configured.
	ErrJudgeUnavailable = errors.New("grounding: judge model not configured")
)
