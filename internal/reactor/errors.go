// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reactor

import "fmt"

// Error decorates a failure from the primitive codec or the dispatch table
// with the diagnostic context a reader needs to locate it: which template
// was open, where in the script execution stood, and how many bytes of the
// underlying stream had been consumed.
type Error struct {
	TemplateID int
	Cursor     int
	Offset     int64
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reactor: template %d cursor %d offset %d: %s", e.TemplateID, e.Cursor, e.Offset, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(templateID, cursor int, offset int64, err error) error {
	if err == nil {
		return nil
	}
	return &Error{TemplateID: templateID, Cursor: cursor, Offset: offset, Reason: err.Error(), Err: err}
}

// ErrUnknownTemplate reports a template id absent from the loaded catalog.
type ErrUnknownTemplate struct {
	TemplateID int
}

func (e *ErrUnknownTemplate) Error() string {
	return fmt.Sprintf("reactor: unknown template id %d", e.TemplateID)
}

// ErrNoPMapScope reports a field whose operator needs a presence bit but no
// enclosing template, group, or sequence in the compiled script declared a
// PMap. A well-formed catalog never produces this; seeing it means the
// catalog and the script that built it disagree.
type ErrNoPMapScope struct {
	Cursor int
}

func (e *ErrNoPMapScope) Error() string {
	return fmt.Sprintf("reactor: field at script index %d needs a presence bit but no PMap is open", e.Cursor)
}
