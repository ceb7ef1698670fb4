// Package request turns request-building scripts into validated request
// descriptors.
//
// A Builder evaluates the script in the sandbox against the variables of an
// ExecutionContext, decodes the result into a Descriptor and rejects it
// before any network activity when url or method is missing. Script
// failures come back as *errors.ScriptError with the context dump, message
// and script text masked so that no credential value is echoed.
//
// SecurityValidator compares a descriptor's host with the integration's
// declared host. It only logs.
package request
