package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tombee/apirun/internal/log"
	"github.com/tombee/apirun/internal/request"
)

// Dispatcher routes descriptors to the transport registered for their
// protocol family. It is safe for concurrent use.
type Dispatcher struct {
	mu         sync.RWMutex
	transports map[Protocol]Transport
	logger     *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transports: make(map[Protocol]Transport),
		logger:     log.WithComponent(logger, "dispatcher"),
	}
}

// Register sets the transport for a protocol family, replacing any
// previous registration.
func (d *Dispatcher) Register(p Protocol, t Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transports[p] = t
}

// DetectProtocol maps a URL scheme to its protocol family. Unparsable URLs
// and unknown schemes fall back to HTTP.
func DetectProtocol(rawURL string) Protocol {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ProtocolHTTP
	}
	switch strings.ToLower(u.Scheme) {
	case "ftp", "ftps", "sftp":
		return ProtocolFTP
	case "postgres", "postgresql":
		return ProtocolPostgres
	default:
		return ProtocolHTTP
	}
}

// Dispatch executes desc on the transport for its protocol. A protocol
// without a registered transport fails with an invalid_request
// *TransportError.
func (d *Dispatcher) Dispatch(ctx context.Context, desc *request.Descriptor, ec *request.ExecutionContext) (*Response, error) {
	protocol := DetectProtocol(desc.URL)

	d.mu.RLock()
	t, ok := d.transports[protocol]
	d.mu.RUnlock()
	if !ok {
		err := &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("no transport registered for protocol %q", protocol),
		}
		recordDispatch(protocol, err, 0)
		return nil, err
	}

	log.Trace(d.logger, "dispatching request",
		slog.String(log.ProtocolKey, string(protocol)),
		slog.String("transport", t.Name()))

	started := time.Now()
	resp, err := t.Execute(ctx, desc, ec)
	recordDispatch(protocol, err, time.Since(started))
	if err != nil {
		return nil, err
	}
	return resp, nil
}
