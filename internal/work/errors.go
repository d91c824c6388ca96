// Copyright 2025 The relift Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package work

import "fmt"

// TransformationError means the transformer could not produce a
// syntactically usable candidate. It is terminal for the item and distinct
// from a sandbox-detected semantic failure.
type TransformationError struct {
	Path   string
	Reason string
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transformation failed for %s: %s", e.Path, e.Reason)
}

// FatalPreconditionError means the input cannot be processed at all
// (unreadable, empty). The item moves straight to Skipped.
type FatalPreconditionError struct {
	Path   string
	Reason string
}

func (e *FatalPreconditionError) Error() string {
	return fmt.Sprintf("fatal precondition for %s: %s", e.Path, e.Reason)
}

// InfrastructureError means a remote collaborator was unreachable. For retry
// purposes it counts as a validation failure, but the report flags it apart.
type InfrastructureError struct {
	Component string
	Err       error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Component, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }
