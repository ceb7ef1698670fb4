/*
Package sandbox evaluates user-authored scripts in isolation.

Scripts are expr-lang expressions, optionally written in a JavaScript-like
shape that Normalize rewrites. Every evaluation compiles a fresh program and
runs it on a fresh virtual machine; no program, VM or value is reused between
calls. Inputs cross the boundary as JSON and are decoded into new values, and
results leave it the same way, so a script can never hold a reference to host
state or hand one back.

Each call runs under a Limits tier:

	RequestLimits()   request-builder scripts: 10s, larger memory budget
	HandlerLimits()   pagination handlers and stop conditions: 3s, smaller budget

The interpreter has no I/O, no loops and no recursion. The memory budget
bounds allocations made by builtins and ranges, MaxNodes bounds program size,
and the timeout is enforced by the host: the evaluation goroutine is
abandoned when the deadline passes.

Failures are reported as *errors.ScriptError with a Reason of compile,
exception, timeout, memory or serialization.
*/
package sandbox
