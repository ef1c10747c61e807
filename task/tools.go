package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/schema"
)

// Names of the built-in tools.
const (
	ToolGetChatHistory      = "get_chat_history"
	ToolSearchKnowledgeBase = "search_knowledge_base"
	ToolAddToKnowledgeBase  = "add_to_knowledge_base"
	ToolGetToolCallHistory  = "get_tool_call_history"
)

// KnowledgeBaseAdded is the result of a successful add_to_knowledge_base call.
const KnowledgeBaseAdded = "Successfully added to knowledge base"

type chatHistoryArgs struct {
	NumChats int `json:"num_chats,omitempty"`
}

type toolCallHistoryArgs struct {
	NumCalls int `json:"num_calls,omitempty"`
}

type searchArgs struct {
	Query string `json:"query"`
}

type addKnowledgeArgs struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

var (
	chatHistoryParams = schema.Object(map[string]*schema.Property{
		"num_chats": schema.Integer("Number of most recent chats to return, each a user and an " +
			"assistant message. Omit for all chats.").Min(1),
	})
	toolCallHistoryParams = schema.Object(map[string]*schema.Property{
		"num_calls": schema.Integer("Number of most recent tool calls to return. Omit for all calls.").Min(1),
	})
	searchParams = schema.Object(map[string]*schema.Property{
		"query": schema.String("The query to search for.").MinLength(1),
	}, "query")
	addKnowledgeParams = schema.Object(map[string]*schema.Property{
		"query":  schema.String("The query to add.").MinLength(1),
		"result": schema.String("The result of the query."),
	}, "query", "result")
)

// boundTools returns every tool exposed to the model: the configured tools first,
// then the built-in tools enabled by UseTools.
func (t *Task) boundTools() []gentask.Tool {
	tools := append([]gentask.Tool(nil), t.cfg.Tools...)
	if !t.cfg.UseTools {
		return tools
	}

	if t.memory != nil {
		tools = append(tools, gentask.NewToolFunc(ToolGetChatHistory,
			"Returns the chat history between the user and assistant as a JSON list of messages, "+
				"oldest first. To get the last chat, use num_chats=1.",
			chatHistoryParams, t.chatHistoryTool))
	}
	if t.cfg.KnowledgeBase != nil {
		tools = append(tools, gentask.NewToolFunc(ToolSearchKnowledgeBase,
			"Search the knowledge base for information about a user's query.",
			searchParams, t.searchKnowledgeBaseTool))
		if t.cfg.UpdateKnowledgeBase {
			tools = append(tools, gentask.NewToolFunc(ToolAddToKnowledgeBase,
				"Add information to the knowledge base for future use.",
				addKnowledgeParams, t.addToKnowledgeBaseTool))
		}
	}
	if t.cfg.ReadToolCallHistory {
		tools = append(tools, gentask.NewToolFunc(ToolGetToolCallHistory,
			"Returns the tool call history by the assistant, newest first. "+
				"To get the last tool call, use num_calls=1.",
			toolCallHistoryParams, t.toolCallHistoryTool))
	}
	return tools
}

func (t *Task) chatHistoryTool(ctx context.Context, in chatHistoryArgs) (string, error) {
	chats, err := t.historySource().Chats(ctx)
	if err != nil {
		return "", err
	}
	if len(chats) == 0 {
		return "", nil
	}
	if in.NumChats > 0 && in.NumChats < len(chats) {
		chats = chats[len(chats)-in.NumChats:]
	}

	history := make([]gentask.Message, 0, 2*len(chats))
	for _, c := range chats {
		history = append(history, c.User, c.Assistant)
	}
	b, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *Task) toolCallHistoryTool(ctx context.Context, in toolCallHistoryArgs) (string, error) {
	calls, err := t.historySource().ToolCalls(ctx, in.NumCalls)
	if err != nil {
		return "", err
	}
	if len(calls) == 0 {
		return "", nil
	}
	b, err := json.Marshal(calls)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// searchKnowledgeBaseTool returns the references text. The search is recorded as a
// tool call, not as a References entry.
func (t *Task) searchKnowledgeBaseTool(ctx context.Context, in searchArgs) (string, error) {
	refs, err := t.References(ctx, in.Query)
	if err != nil {
		return "", err
	}
	return refs.Text, nil
}

func (t *Task) addToKnowledgeBaseTool(ctx context.Context, in addKnowledgeArgs) (string, error) {
	if t.cfg.KnowledgeBase == nil {
		return gentask.ToolUnavailableKnowledgeBase, nil
	}

	content, err := json.Marshal(map[string]string{"query": in.Query, "result": in.Result})
	if err != nil {
		return "", err
	}
	doc := gentask.Document{Name: documentName(in.Query), Content: string(content)}
	t.logger.Info("adding document to knowledge base", "task", t.ID(), "name", doc.Name)
	if err := t.cfg.KnowledgeBase.Load(ctx, doc); err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	return KnowledgeBaseAdded, nil
}

var documentNameReplacer = strings.NewReplacer(" ", "_", "?", "", "!", "", ".", "")

func documentName(query string) string {
	return documentNameReplacer.Replace(query)
}

// recordedTool wraps a bound tool so every invocation is buffered into the current
// run and reported to hooks.
type recordedTool struct {
	gentask.Tool
	task *Task
}

func (r *recordedTool) Call(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	result, err := r.Tool.Call(ctx, args)

	call := gentask.ToolCall{
		Name:      r.Name(),
		Arguments: args,
		Result:    result,
		Duration:  time.Since(start),
	}
	if err != nil {
		call.Error = err.Error()
		r.task.logger.Warn("tool call failed", "task", r.task.ID(), "tool", call.Name, "error", err)
	}
	r.task.recordToolCall(call)
	r.task.cfg.Hooks.FireToolCall(ctx, r.task, gentask.ToolCallEvent{Call: call})
	return result, err
}

// bindTools registers the tools with the model and reconciles the model's tool
// settings: visibility and choice are only filled in when the model has none, and the
// call ceiling can only be lowered.
func (t *Task) bindTools() int {
	tools := t.boundTools()
	for _, tool := range tools {
		t.model.RegisterTool(&recordedTool{Tool: tool, task: t})
	}

	settings := t.model.Settings()
	if settings.ShowToolCalls == nil && t.cfg.ShowToolCalls != nil {
		settings.ShowToolCalls = gentask.Ptr(*t.cfg.ShowToolCalls)
	}
	if settings.ToolChoice == nil && t.cfg.ToolChoice != nil {
		settings.ToolChoice = gentask.Ptr(*t.cfg.ToolChoice)
	}
	settings.ToolCallLimit = effectiveToolCallLimit(t.cfg.ToolCallLimit, settings.ToolCallLimit)
	return len(tools)
}

// effectiveToolCallLimit returns the ceiling after applying the task's limit to the
// model's. Zero means unset for the task and uncapped for the model.
func effectiveToolCallLimit(taskLimit, modelLimit int) int {
	if taskLimit <= 0 {
		return modelLimit
	}
	if modelLimit <= 0 {
		return taskLimit
	}
	return min(taskLimit, modelLimit)
}
