package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/a3tai/pdf-bookmaker/internal/api"
	"github.com/a3tai/pdf-bookmaker/internal/book"
	"github.com/a3tai/pdf-bookmaker/internal/config"
	"github.com/a3tai/pdf-bookmaker/internal/descriptions"
	"github.com/a3tai/pdf-bookmaker/internal/library"
	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Users resolves the account the tools act for
type Users interface {
	UserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	books     *book.Service
	library   *library.Library
	users     Users
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, books *book.Service, lib *library.Library, users Users, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if books == nil || lib == nil || users == nil {
		return nil, fmt.Errorf("book service, library and user store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		books:     books,
		library:   lib,
		users:     users,
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	bookGenerateTool := mcp.NewTool(
		"book_generate",
		mcp.WithDescription(descriptions.GetToolDescription("book_generate")),
		mcp.WithArray("topics",
			mcp.Required(),
			mcp.Description("Topics to write a chapter about, in order"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("book_name",
			mcp.Description("Title of the book"),
		),
		mcp.WithString("paper_size",
			mcp.Description("Paper size"),
			mcp.Enum(api.PaperSizes...),
		),
		mcp.WithString("font_size",
			mcp.Description("Body font size in points"),
		),
		mcp.WithString("font_style",
			mcp.Description("Font family"),
			mcp.Enum(api.FontStyles...),
		),
	)
	s.mcpServer.AddTool(bookGenerateTool, s.handleBookGenerate)

	bookListTool := mcp.NewTool(
		"book_list",
		mcp.WithDescription(descriptions.GetToolDescription("book_list")),
	)
	s.mcpServer.AddTool(bookListTool, s.handleBookList)

	bookStatsTool := mcp.NewTool(
		"book_stats",
		mcp.WithDescription(descriptions.GetToolDescription("book_stats")),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("File name of the book as listed by book_list"),
		),
	)
	s.mcpServer.AddTool(bookStatsTool, s.handleBookStats)
}

// actingUser resolves the configured account on every call so that an
// account created after startup is picked up
func (s *Server) actingUser(ctx context.Context) (*store.User, error) {
	u, err := s.users.UserByUsername(ctx, s.config.MCPUser)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("account %q does not exist, sign up first", s.config.MCPUser)
	}
	return u, err
}

// Handler functions
func (s *Server) handleBookGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	topics, err := stringList(args["topics"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	user, err := s.actingUser(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := api.BookRequest{
		Topics:    topics,
		BookName:  request.GetString("book_name", ""),
		PaperSize: request.GetString("paper_size", ""),
		FontSize:  numberOrString(args["font_size"]),
		FontStyle: request.GetString("font_style", ""),
	}

	result, err := s.books.Generate(ctx, book.Author{ID: user.ID, Username: user.Username}, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatBookGenerateResult(req, result)), nil
}

func (s *Server) handleBookList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := s.actingUser(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	files, err := s.library.List(ctx, user.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No books found for %s", user.Username)), nil
	}
	return mcp.NewToolResultText(s.formatBookListResult(user.Username, files)), nil
}

func (s *Server) handleBookStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := request.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	user, err := s.actingUser(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := s.library.Open(ctx, user.ID, filename)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", filename, err)), nil
	}

	stats, err := s.library.Stats(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatBookStatsResult(stats)), nil
}

// Formatting methods
func (s *Server) formatBookGenerateResult(req api.BookRequest, result *book.Result) string {
	text := fmt.Sprintf("%s: %s\n", book.SuccessMessage, result.Filename)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	if result.Layout != nil {
		text += "\nContents:\n"
		n := 0
		for _, topic := range req.Topics {
			if strings.TrimSpace(topic) == "" {
				continue
			}
			if n < len(result.Layout.ChapterStarts) {
				text += fmt.Sprintf("  Chapter %d: %s (page %d)\n", n+1, strings.TrimSpace(topic), result.Layout.ChapterStarts[n])
			}
			n++
		}
	}
	return text
}

func (s *Server) formatBookListResult(username string, files []store.File) string {
	text := fmt.Sprintf("Found %d book(s) for %s\n\n", len(files), username)
	for i, f := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, f.Filename)
		text += fmt.Sprintf("   Created: %s\n", f.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return text
}

func (s *Server) formatBookStatsResult(stats *library.Stats) string {
	text := "Book Statistics\n"
	text += fmt.Sprintf("File: %s\n", stats.Filename)
	text += fmt.Sprintf("Size: %d bytes\n", stats.Size)
	text += fmt.Sprintf("Pages: %d\n", stats.Pages)
	text += fmt.Sprintf("Modified: %s\n", stats.Modified)

	if stats.Title != "" {
		text += fmt.Sprintf("Title: %s\n", stats.Title)
	}
	if stats.Author != "" {
		text += fmt.Sprintf("Author: %s\n", stats.Author)
	}

	return text
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("topics must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("required argument \"topics\" not found")
	default:
		return nil, fmt.Errorf("topics must be an array of strings")
	}
}

// numberOrString accepts font sizes sent either as JSON numbers or strings
func numberOrString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return ""
	}
}

// Run serves the tools over stdin and stdout until the input closes
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("starting MCP server on stdio",
		zap.String("books_directory", s.config.BooksDirectory),
		zap.String("user", s.config.MCPUser))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
