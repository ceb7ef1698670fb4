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

// Package transport routes built requests to the transport for their
// protocol family and defines the contract those transports implement.
//
// HTTP(S) has a reference implementation in this package. FTP-family and
// Postgres-family transports are supplied by the embedding platform and
// registered on the Dispatcher.
package transport

import (
	"context"

	"github.com/tombee/apirun/internal/request"
)

// Protocol identifies a transport family.
type Protocol string

const (
	// ProtocolHTTP covers http, https and every unrecognized scheme.
	ProtocolHTTP Protocol = "http"
	// ProtocolFTP covers ftp, ftps and sftp.
	ProtocolFTP Protocol = "ftp"
	// ProtocolPostgres covers postgres and postgresql.
	ProtocolPostgres Protocol = "postgres"
)

// Transport executes one built request.
type Transport interface {
	// Execute sends the request described by d. ec carries the credentials
	// and addressing state of the current iteration. Returns
	// *TransportError on failure.
	Execute(ctx context.Context, d *request.Descriptor, ec *request.ExecutionContext) (*Response, error)

	// Name returns the transport identifier (e.g., "http").
	Name() string
}

// Response is what a transport hands back to the pagination loop.
type Response struct {
	// Raw is the undecoded payload. When set, it is normalized through the
	// format registry.
	Raw []byte

	// Data is an already structured payload, used when Raw is nil. Transports
	// such as Postgres produce rows rather than bytes.
	Data any

	// StatusCode is the protocol status (HTTP status, or 0).
	StatusCode int

	// Headers contains response headers.
	Headers map[string][]string
}

// RateLimiter blocks until a request is allowed.
// *rate.Limiter from golang.org/x/time/rate satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc struct {
	ID string
	Fn func(ctx context.Context, d *request.Descriptor, ec *request.ExecutionContext) (*Response, error)
}

// Execute calls Fn.
func (f TransportFunc) Execute(ctx context.Context, d *request.Descriptor, ec *request.ExecutionContext) (*Response, error) {
	return f.Fn(ctx, d, ec)
}

// Name returns ID.
func (f TransportFunc) Name() string { return f.ID }
