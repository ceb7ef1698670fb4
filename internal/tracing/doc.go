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

/*
Package tracing carries trace ids and OpenTelemetry spans for pagination runs.

A run is identified by a TraceID, either supplied by the caller or generated.
The id travels on the context, is attached to every log line of the run and
is sent on outbound HTTP requests as X-Correlation-ID.

Spans are created through the global OpenTelemetry provider. Without any
setup they are no-ops. The CLI installs a console provider with --trace:

	p, err := tracing.NewConsoleProvider(tracing.ConsoleConfig{
	    ServiceName: "apirun",
	    Writer:      os.Stderr,
	})
	defer p.Shutdown(ctx)

	ctx, run := tracing.StartRun(ctx, tracing.Tracer(), id, "cursorBased")
	defer run.End(err)
*/
package tracing
