// Package mcp turns configured MCP servers into ADK toolsets for the
// coordinator.
package mcp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/mcptoolset"

	"github.com/danishi/adk-blog-writer-agent/pkg/config"
)

const (
	// defaultTimeout bounds a single MCP HTTP exchange.
	defaultTimeout = 5 * time.Minute

	serverTypeHTTP = "http"
	serverTypeSSE  = "sse"
)

// CreateToolsets creates toolsets from all configured HTTP and SSE MCP
// servers. Errors on individual servers are logged and skipped.
func CreateToolsets(ctx context.Context, httpTools, sseTools []config.MCPServer) []tool.Toolset {
	log := logr.FromContextOrDiscard(ctx)
	var toolsets []tool.Toolset

	add := func(serverType string, servers []config.MCPServer) {
		for i, server := range servers {
			if len(server.Tools) > 0 {
				log.Info("Adding MCP toolset", "type", serverType, "index", i+1, "url", server.URL, "tools", server.Tools)
			} else {
				log.Info("Adding MCP toolset", "type", serverType, "index", i+1, "url", server.URL, "tools", "all")
			}

			ts, err := initializeToolSet(ctx, server, serverType)
			if err != nil {
				log.Error(err, "Failed to create MCP toolset", "type", serverType, "url", server.URL)
				continue
			}
			toolsets = append(toolsets, ts)
		}
	}
	add(serverTypeHTTP, httpTools)
	add(serverTypeSSE, sseTools)

	log.Info("MCP toolsets created", "totalToolsets", len(toolsets), "httpToolsCount", len(httpTools), "sseToolsCount", len(sseTools))
	return toolsets
}

// httpTimeout is the client timeout for a server. SSE streams stay open for
// at least their read timeout.
func httpTimeout(server config.MCPServer, serverType string) time.Duration {
	timeout := defaultTimeout
	if server.Timeout > 0 {
		timeout = max(server.Timeout, time.Second)
	}
	if serverType == serverTypeSSE && server.SseReadTimeout > timeout {
		timeout = server.SseReadTimeout
	}
	return timeout
}

// tlsConfig returns nil when the default transport settings apply.
func tlsConfig(ctx context.Context, server config.MCPServer) (*tls.Config, error) {
	if server.TLSDisableVerify {
		logr.FromContextOrDiscard(ctx).Info("WARNING: TLS certificate verification disabled for MCP server", "url", server.URL)
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	if server.TLSCACertPath == "" {
		return nil, nil
	}

	caCert, err := os.ReadFile(server.TLSCACertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate from %s: %w", server.TLSCACertPath, err)
	}
	pool := x509.NewCertPool()
	if !server.TLSDisableSystemCAs {
		if systemCAs, err := x509.SystemCertPool(); err == nil {
			pool = systemCAs
		}
	}
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate from %s", server.TLSCACertPath)
	}
	return &tls.Config{RootCAs: pool}, nil
}

// createTransport creates an MCP transport for the server.
func createTransport(ctx context.Context, server config.MCPServer, serverType string) (mcpsdk.Transport, error) {
	tc, err := tlsConfig(ctx, server)
	if err != nil {
		return nil, err
	}
	baseTransport := &http.Transport{TLSClientConfig: tc}

	var httpTransport http.RoundTripper = baseTransport
	if len(server.Headers) > 0 {
		httpTransport = &headerRoundTripper{base: baseTransport, headers: server.Headers}
	}
	httpClient := &http.Client{
		Timeout:   httpTimeout(server, serverType),
		Transport: httpTransport,
	}

	if serverType == serverTypeSSE {
		return &mcpsdk.SSEClientTransport{Endpoint: server.URL, HTTPClient: httpClient}, nil
	}
	return &mcpsdk.StreamableClientTransport{Endpoint: server.URL, HTTPClient: httpClient}, nil
}

// headerRoundTripper adds custom headers to all requests.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers map[string]string
}

func (rt *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, value := range rt.headers {
		req.Header.Set(key, value)
	}
	return rt.base.RoundTrip(req)
}

// initializeToolSet creates an ADK mcptoolset for one server. Tools are
// listed lazily by the toolset on first use.
func initializeToolSet(ctx context.Context, server config.MCPServer, serverType string) (tool.Toolset, error) {
	transport, err := createTransport(ctx, server, serverType)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for %s: %w", server.URL, err)
	}

	var filter tool.Predicate
	if len(server.Tools) > 0 {
		filter = tool.StringPredicate(server.Tools)
	}

	toolset, err := mcptoolset.New(mcptoolset.Config{
		Transport:  transport,
		ToolFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP toolset for %s: %w", server.URL, err)
	}
	return toolset, nil
}
