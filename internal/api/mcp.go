package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/mentord/internal/personalize"
)

const (
	profileURIPrefix = "learner://"
	profileURISuffix = "/profile"
)

// NewMCPServer creates an MCP server exposing the engine as tools and the
// learner profile as a resource template.
func NewMCPServer(engine Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mentord",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("mentord keeps a model of each learner and tailors explanations to it."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("personalize_query",
			mcp.WithDescription("Classify a learner's query and return tailoring (level, style, greeting, recommendations)."),
			mcp.WithString("user_id", mcp.Description("Learner id or email"), mcp.Required()),
			mcp.WithString("query", mcp.Description("The learner's query"), mcp.Required()),
		),
		mcpPersonalize(engine),
	)

	s.AddTool(
		mcp.NewTool("record_interaction",
			mcp.WithDescription("Record how well the learner did on a topic."),
			mcp.WithString("user_id", mcp.Description("Learner id or email"), mcp.Required()),
			mcp.WithString("topic", mcp.Description("Topic practiced"), mcp.Required()),
			mcp.WithNumber("success_rate", mcp.Description("Success between 0 and 1 (default 0.5)")),
		),
		mcpRecordInteraction(engine),
	)

	s.AddTool(
		mcp.NewTool("record_feedback",
			mcp.WithDescription("Store feedback on a previous answer. Unhelpful feedback with a topic flags it for review."),
			mcp.WithString("user_id", mcp.Description("Learner id or email"), mcp.Required()),
			mcp.WithString("query", mcp.Description("The query the answer was for"), mcp.Required()),
			mcp.WithBoolean("was_helpful", mcp.Description("Whether the answer helped"), mcp.Required()),
			mcp.WithString("feedback", mcp.Description("Free-text feedback")),
			mcp.WithString("topic", mcp.Description("Topic of the answer")),
		),
		mcpRecordFeedback(engine),
	)

	s.AddTool(
		mcp.NewTool("get_recommendations",
			mcp.WithDescription("Suggest flashcards, games, resources and next steps for the learner."),
			mcp.WithString("user_id", mcp.Description("Learner id or email"), mcp.Required()),
		),
		mcpRecommendations(engine),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			profileURIPrefix+"{user_id}"+profileURISuffix,
			"Learner Profile",
			mcp.WithTemplateDescription("The learner's stored profile as JSON"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceProfile(engine),
	)

	return s
}

func mcpPersonalize(engine Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		t, err := engine.Process(ctx, userID, query)
		if err != nil {
			return mcpError(fmt.Sprintf("personalization failed: %v", err)), nil
		}
		return mcpJSON(t)
	}
}

func mcpRecordInteraction(engine Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}
		rate := req.GetFloat("success_rate", 0.5)

		res, err := engine.RecordInteraction(ctx, userID, topic, rate)
		if err != nil {
			return mcpError(fmt.Sprintf("recording interaction failed: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpRecordFeedback(engine Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		helpful, err := req.RequireBool("was_helpful")
		if err != nil {
			return mcpError("was_helpful is required"), nil
		}

		res, err := engine.Feedback(ctx, userID, personalize.FeedbackInput{
			Query:      query,
			WasHelpful: helpful,
			Text:       req.GetString("feedback", ""),
			Topic:      req.GetString("topic", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("recording feedback failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored feedback %s", res.ID)), nil
	}
}

func mcpRecommendations(engine Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		recs, err := engine.Recommendations(ctx, userID)
		if err != nil {
			return mcpError(fmt.Sprintf("recommendations failed: %v", err)), nil
		}
		return mcpJSON(recs)
	}
}

func mcpResourceProfile(engine Engine) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		userID, ok := userIDFromURI(req.Params.URI)
		if !ok {
			return nil, fmt.Errorf("invalid learner profile uri %q", req.Params.URI)
		}
		p, err := engine.Profile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// userIDFromURI extracts the id from learner://{user_id}/profile.
func userIDFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, profileURIPrefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, profileURISuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
