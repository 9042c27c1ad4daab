package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/segmentio/ksuid"
	"github.com/tmaxmax/go-sse"
)

type chatRequest struct {
	Messages []models.Message `json:"messages"`
}

type assistantMessageData struct {
	HTML template.HTML
}

// SSE event types of the streaming endpoints.
var (
	deltaSSEType = sse.Type("delta")
	doneSSEType  = sse.Type("done")
	errorSSEType = sse.Type("error")
)

const maxBodyBytes = 1 << 20

// HandleConversation answers a conversation transcript with a single assistant message.
func (m Main) HandleConversation(w http.ResponseWriter, r *http.Request) {
	m.handleChat(w, r, m.conversation)
}

// HandleCode answers a code generation transcript with a single assistant message whose content is
// markdown formatted code.
func (m Main) HandleCode(w http.ResponseWriter, r *http.Request) {
	m.handleChat(w, r, m.code)
}

// HandleConversationStream is the Server-Sent Events variant of HandleConversation.
func (m Main) HandleConversationStream(w http.ResponseWriter, r *http.Request) {
	m.handleChatStream(w, r, m.conversation)
}

// HandleCodeStream is the Server-Sent Events variant of HandleCode.
func (m Main) HandleCodeStream(w http.ResponseWriter, r *http.Request) {
	m.handleChatStream(w, r, m.code)
}

// chatTranscript runs the chat preconditions in order and returns the transcript to forward, with the
// tool instruction in front. It writes the failure and returns false when a precondition fails.
func (m Main) chatTranscript(w http.ResponseWriter, r *http.Request, tool chatTool) ([]models.Message, bool) {
	if !m.authorize(w, r, tool.name, m.chat.Name(), m.chat.Configured()) {
		return nil, false
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		m.fail(w, r, tool.name, badInput("Invalid request body", err))
		return nil, false
	}

	if err := models.ValidateTranscript(req.Messages); err != nil {
		msg := "Messages must be a non-empty array."
		if len(req.Messages) > 0 {
			msg = fmt.Sprintf("Invalid messages: %v", err)
		}
		m.fail(w, r, tool.name, badInput(msg, err))
		return nil, false
	}

	return models.WithInstruction(tool.instruction, req.Messages), true
}

func (m Main) handleChat(w http.ResponseWriter, r *http.Request, tool chatTool) {
	messages, ok := m.chatTranscript(w, r, tool)
	if !ok {
		return
	}

	reply, err := m.chat.Complete(r.Context(), tool.model, messages)
	if err != nil {
		m.fail(w, r, tool.name, providerFailed(err))
		return
	}

	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, reply)
		return
	}

	content, err := models.RenderMarkdown(reply.Content)
	if err != nil {
		m.logger.Error("Failed to render contents",
			slog.String("message", fmt.Sprintf("%+v", reply)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = m.templates.ExecuteTemplate(w, "assistant_message", assistantMessageData{
		// goldmark escapes raw HTML in the content unless WithUnsafe is set
		HTML: template.HTML(content),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleChatStream reports precondition failures as plain HTTP errors, exactly like handleChat. Once the
// stream is open, it emits a delta event per chunk and ends with either a done event carrying the full
// assistant message, or an error event.
func (m Main) handleChatStream(w http.ResponseWriter, r *http.Request, tool chatTool) {
	messages, ok := m.chatTranscript(w, r, tool)
	if !ok {
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		m.logger.Error("Failed to upgrade to SSE", slog.String(errLoggerKey, err.Error()))
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	var sb strings.Builder
	for chunk, err := range m.chat.Stream(r.Context(), tool.model, messages) {
		if err != nil {
			f := providerFailed(err)
			m.logger.Error("Generation failed",
				slog.String("tool", tool.name),
				slog.String("message", f.message),
				slog.String(errLoggerKey, err.Error()))
			_ = m.publish(sess, errorSSEType, f.message)
			return
		}

		sb.WriteString(chunk)
		if err := m.publish(sess, deltaSSEType, chunk); err != nil {
			m.logger.Debug("Stream closed by client", slog.String(errLoggerKey, err.Error()))
			return
		}
	}

	if sb.Len() == 0 {
		_ = m.publish(sess, errorSSEType, fmt.Sprintf("No response from %s.", m.chat.Name()))
		return
	}

	done, err := json.Marshal(models.Message{
		Role:    models.RoleAssistant,
		Content: sb.String(),
	})
	if err != nil {
		m.logger.Error("Failed to marshal message", slog.String(errLoggerKey, err.Error()))
		return
	}
	_ = m.publish(sess, doneSSEType, string(done))
}

// publish sends a single event and flushes it to the client. Event IDs are KSUIDs so that they sort in
// emission order.
func (m Main) publish(sess *sse.Session, typ sse.EventType, data string) error {
	msg := &sse.Message{
		ID:   sse.ID(ksuid.New().String()),
		Type: typ,
	}
	msg.AppendData(data)

	if err := sess.Send(msg); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	if err := sess.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	return nil
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
