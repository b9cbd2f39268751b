/*
Copyright 2024 Pointforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/pointforge/pointforge/internal/apierror"
)

// mapPQError translates driver-level failures into typed API errors so
// callers never switch on postgres error codes themselves.
func mapPQError(err error, entity string) error {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("error processing %s", entity), err)
	}
	switch pqErr.Code.Name() {
	case "unique_violation":
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("%s already exists", entity), err)
	case "foreign_key_violation":
		return apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("invalid reference on %s", entity), err)
	case "check_violation":
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("constraint violated on %s", entity), err)
	default:
		return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("error processing %s", entity), err)
	}
}

// isUniqueViolation reports whether err comes from a unique constraint,
// optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	if pqErr.Code.Name() != "unique_violation" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
