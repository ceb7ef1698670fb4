// Copyright 2025 Tom Barlow
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

package tracing

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// TraceID identifies one pagination run across logs, spans and outbound
// requests. Callers may supply their own; otherwise a UUID is generated.
type TraceID string

type traceKeyType struct{}

var traceKey = traceKeyType{}

// HeaderTraceID is set on outbound HTTP requests when a trace id is known.
const HeaderTraceID = "X-Correlation-ID"

// maxTraceIDLength bounds caller-supplied ids before they reach headers.
const maxTraceIDLength = 128

// NewTraceID generates a new unique trace id.
func NewTraceID() TraceID {
	return TraceID(uuid.New().String())
}

// String returns the string representation of the trace id.
func (t TraceID) String() string {
	return string(t)
}

// Sanitize strips characters that are not safe in an HTTP header value and
// truncates overly long ids. An id that sanitizes to empty is replaced by a
// fresh one.
func (t TraceID) Sanitize() TraceID {
	cleaned := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ' {
			return -1
		}
		return r
	}, string(t))
	if len(cleaned) > maxTraceIDLength {
		cleaned = cleaned[:maxTraceIDLength]
	}
	if cleaned == "" {
		return NewTraceID()
	}
	return TraceID(cleaned)
}

// ToContext adds the trace id to the context.
func ToContext(ctx context.Context, id TraceID) context.Context {
	return context.WithValue(ctx, traceKey, id)
}

// FromContext retrieves the trace id from the context, generating a new one
// when none is present.
func FromContext(ctx context.Context) TraceID {
	if id, ok := ctx.Value(traceKey).(TraceID); ok {
		return id
	}
	return NewTraceID()
}

// FromContextOrEmpty retrieves the trace id from the context.
// Returns empty string if no trace id is found.
func FromContextOrEmpty(ctx context.Context) TraceID {
	if id, ok := ctx.Value(traceKey).(TraceID); ok {
		return id
	}
	return ""
}

// InjectIntoRequest adds the trace id from ctx to the request headers.
func InjectIntoRequest(ctx context.Context, req *http.Request) {
	if id := FromContextOrEmpty(ctx); id != "" {
		req.Header.Set(HeaderTraceID, id.String())
	}
}
