package transport

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/logger"
	"go-ingredient-analyzer/internal/service"
)

const toolsBasePath = "/tools"

// NewToolServer exposes both operations as MCP tools.
func NewToolServer(menu service.MenuAnalysisService, info service.IngredientInfoService, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ingredient-analyzer",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool(service.OperationAnalyzeMenuImage,
		mcp.WithDescription("Read the ingredient list from a photo of a food label"),
		mcp.WithString("image_data",
			mcp.Required(),
			mcp.Description("Label photo as a data URI or bare base64 JPEG"),
		),
	), analyzeMenuTool(menu))

	s.AddTool(mcp.NewTool(service.OperationGetIngredientInfo,
		mcp.WithDescription("Explain a food ingredient: description, usage, nutrition, why it is added and the effect of leaving it out"),
		mcp.WithString("ingredient",
			mcp.Required(),
			mcp.Description("Ingredient name"),
		),
	), ingredientInfoTool(info))

	return s
}

// NewSSEHandler serves s over SSE under /tools.
func NewSSEHandler(s *server.MCPServer) *server.SSEServer {
	return server.NewSSEServer(s, server.WithStaticBasePath(toolsBasePath))
}

func analyzeMenuTool(menu service.MenuAnalysisService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		imageData, _ := req.GetArguments()["image_data"].(string)

		analysis, err := menu.AnalyzeImage(ctx, imageData)
		if err != nil {
			return toolError(service.OperationAnalyzeMenuImage, err), nil
		}
		return toolResult(analysis.Result, analysis.HTML), nil
	}
}

func ingredientInfoTool(info service.IngredientInfoService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ingredient, _ := req.GetArguments()["ingredient"].(string)

		detail, err := info.Explain(ctx, ingredient)
		if err != nil {
			return toolError(service.OperationGetIngredientInfo, err), nil
		}
		return toolResult(detail.Result, detail.HTML), nil
	}
}

// toolResult carries the result JSON and the markup as two text contents.
func toolResult(result, html string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result),
			mcp.NewTextContent(html),
		},
	}
}

func toolError(operation string, err error) *mcp.CallToolResult {
	logger.ForOperation(operation).WithError(err).Warn("Tool call failed")
	return mcp.NewToolResultError(apperrors.UserMessage(err))
}
