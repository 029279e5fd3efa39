package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"dirmcp/internal/catalog"
	"dirmcp/internal/config"
	"dirmcp/internal/logging"
	"dirmcp/pkg/fileops"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName = "dirmcp"

	ListURI         = "files://list"
	ReadURIPrefix   = "files://read/"
	ReadURITemplate = ReadURIPrefix + "{filename}"

	ListToolName = "list_files"
	ReadToolName = "read_file"

	jsonMIMEType = "application/json"
)

// fileList is the payload of files://list and the list_files tool.
type fileList struct {
	Files []string `json:"files"`
}

// Server represents an MCP server instance using mcp-go
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	version   string
	catalog   *catalog.Catalog
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. Nothing touches the
// filesystem until Initialize or Start is called.
func NewServer(cfg *config.Config, logger *logging.AppLogger, version string) *Server {
	return &Server{
		config:  cfg,
		logger:  logger.With("transport", "mcp"),
		version: version,
	}
}

// Initialize opens the catalog over the configured directory and registers
// the resources and tools. It is safe to call more than once.
func (s *Server) Initialize() error {
	if s.mcpServer != nil {
		return nil
	}

	cat, err := catalog.New(s.config.Directory, s.logger, catalog.WithMaxFileSize(s.config.MaxFileSize))
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	s.catalog = cat

	s.mcpServer = server.NewMCPServer(ServerName, s.version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerResources()
	s.registerTools()

	s.logger.Info("MCP server initialized", "directory", cat.BaseDir())
	return nil
}

// Start initializes the server and serves MCP over stdin/stdout until ctx is
// cancelled or stdin is closed.
func (s *Server) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve runs the stdio transport on the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := s.Initialize(); err != nil {
		return err
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger.StandardLog())

	s.logger.Info("Serving MCP over stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the MCP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping MCP server")
	// The stdio loop exits when its context is cancelled
	return nil
}

// MCPServer exposes the underlying mcp-go server, or nil before Initialize.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(ListURI, "File list",
			mcp.WithResourceDescription("Names of the visible files in the served directory"),
			mcp.WithMIMEType(jsonMIMEType),
		),
		s.handleListResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(ReadURITemplate, "File content",
			mcp.WithTemplateDescription("Text content and metadata of one file in the served directory"),
			mcp.WithTemplateMIMEType(jsonMIMEType),
		),
		s.handleReadResource,
	)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(ListToolName,
			mcp.WithDescription("List the files available in the served directory"),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleListTool,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(ReadToolName,
			mcp.WithDescription("Read a text file from the served directory"),
			mcp.WithString("filename",
				mcp.Required(),
				mcp.Description("File name relative to the served directory"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleReadTool,
	)
}

func (s *Server) handleListResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.logger.LogRequest("mcp", "list", "")

	payload, err := s.listPayload()
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: jsonMIMEType,
			Text:     payload,
		},
	}, nil
}

func (s *Server) handleReadResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name, err := filenameFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}
	s.logger.LogRequest("mcp", "read", name)

	payload, err := s.readPayload(name)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: jsonMIMEType,
			Text:     payload,
		},
	}, nil
}

func (s *Server) handleListTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.LogRequest("mcp", "list", "")

	payload, err := s.listPayload()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(payload), nil
}

func (s *Server) handleReadTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.LogRequest("mcp", "read", name)

	payload, err := s.readPayload(name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(payload), nil
}

func (s *Server) listPayload() (string, error) {
	entries, err := s.catalog.ListFiles()
	if err != nil {
		return "", err
	}

	list := fileList{Files: make([]string, 0, len(entries))}
	for _, e := range entries {
		list.Files = append(list.Files, e.Name)
	}
	return marshal(list)
}

func (s *Server) readPayload(name string) (string, error) {
	content, err := s.catalog.ReadFile(name)
	if err != nil {
		return "", err
	}
	return marshal(content)
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode response: %w", err)
	}
	return string(data), nil
}

// filenameFromURI extracts the filename from a files://read/ URI. The
// remainder is percent-decoded exactly once; the resolver handles anything
// still encoded after that.
func filenameFromURI(uri string) (string, error) {
	raw, ok := strings.CutPrefix(uri, ReadURIPrefix)
	if !ok {
		return "", fmt.Errorf("unsupported resource URI: %s", uri)
	}

	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fileops.NewError(fileops.KindPathTraversal, raw, err)
	}
	return name, nil
}

// toolError renders err as "<kind>: <message>" for tool callers.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", fileops.KindOf(err), err))
}
