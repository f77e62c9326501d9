// Package router is the conversational core: it decides, for every
// inbound message, whether the bot greets, dispatches a command,
// forwards to the AI assistant, consumes a pending selection, or stays
// silent. All side effects go through narrow collaborator interfaces so
// the decision logic tests without the network.
package router

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/snapxhq/snapbot/internal/bus"
	"github.com/snapxhq/snapbot/internal/commands"
	"github.com/snapxhq/snapbot/internal/config"
	"github.com/snapxhq/snapbot/internal/greenapi"
	"github.com/snapxhq/snapbot/internal/messages"
	"github.com/snapxhq/snapbot/internal/providers"
	"github.com/snapxhq/snapbot/internal/sessions"
	"github.com/snapxhq/snapbot/internal/store"
)

// Sender is the outbound side of the WhatsApp gateway.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendFileByURL(ctx context.Context, chatID, fileURL, fileName, caption string) error
	SendFileByUpload(ctx context.Context, chatID, fileName string, data []byte, caption string) error
	CheckWhatsApp(ctx context.Context, phone string) (bool, error)
	GetAvatar(ctx context.Context, chatID string) (url string, available bool, err error)
	GetContactInfo(ctx context.Context, chatID string) (greenapi.ContactInfo, error)
}

// ChatProvider is the AI assistant.
type ChatProvider interface {
	Send(ctx context.Context, token, message string) (providers.ChatReply, error)
}

// VideoProvider resolves page links to downloadable video URLs.
type VideoProvider interface {
	Resolve(ctx context.Context, pageURL string) (providers.Media, error)
}

// ShortenerProvider creates short links and reports their stats.
type ShortenerProvider interface {
	Shorten(ctx context.Context, longURL, custom, password string) (providers.ShortLink, error)
	Stats(ctx context.Context, linkID string) (providers.LinkStats, error)
}

// AvatarFetcher downloads and thumbnails avatar images.
type AvatarFetcher interface {
	FetchThumbnail(ctx context.Context, url string) ([]byte, error)
}

// inline phrases that switch AI mode off mid-conversation. Matched as
// substrings of the lowered message and its space-stripped form, so
// "gpt off", "gptoff" and "please turn gpt off" all count the same way.
var aiOffPhrases = []string{"gpt off", "chatgpt off", "gptoff", "chatgptoff", "ai off"}

// Router wires the classifier, session state, stores and collaborators
// into one HandleIncoming entry point.
type Router struct {
	cfg      *config.Config
	sessions *sessions.Manager
	stores   *store.Stores
	catalog  messages.Catalog

	sender    Sender
	chat      ChatProvider
	video     VideoProvider
	shortener ShortenerProvider
	avatars   AvatarFetcher

	now func() time.Time

	mu         sync.RWMutex
	classifier *commands.Classifier

	tracer trace.Tracer
}

// Option customizes a Router.
type Option func(*Router)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New builds a Router. Returns an error when the configured command
// table cannot be compiled; the caller decides whether to run degraded.
func New(cfg *config.Config, mgr *sessions.Manager, st *store.Stores,
	sender Sender, chat ChatProvider, video VideoProvider,
	shortener ShortenerProvider, avatars AvatarFetcher, opts ...Option) (*Router, error) {

	r := &Router{
		cfg:       cfg,
		sessions:  mgr,
		stores:    st,
		catalog:   messages.Default(),
		sender:    sender,
		chat:      chat,
		video:     video,
		shortener: shortener,
		avatars:   avatars,
		now:       time.Now,
		tracer:    otel.Tracer("snapbot/router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.ReloadCommands(); err != nil {
		return nil, err
	}
	return r, nil
}

// ReloadCommands rebuilds the classifier from the live config. Called at
// startup and again on config hot reload.
func (r *Router) ReloadCommands() error {
	specs := r.cfg.CommandTable()
	table := make([]commands.Spec, 0, len(specs))
	for _, s := range specs {
		table = append(table, commands.Spec{
			Aliases:   s.Aliases,
			Handler:   s.Handler,
			AdminOnly: s.AdminOnly,
		})
	}
	registry, err := commands.NewRegistry(table)
	if err != nil {
		return err
	}
	classifier := commands.NewClassifier(registry, r.cfg.Prefix())

	r.mu.Lock()
	r.classifier = classifier
	r.mu.Unlock()
	return nil
}

func (r *Router) classify(text string) commands.Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classifier.Classify(text)
}

// HandleIncoming processes one inbound message end to end. It never
// panics outward; a handler crash is logged and the message dropped.
func (r *Router) HandleIncoming(ctx context.Context, msg bus.InboundMessage) {
	ctx, span := r.tracer.Start(ctx, "router.handle",
		trace.WithAttributes(
			attribute.String("chat.id", msg.ChatID),
			attribute.String("delivery.id", msg.DeliveryID),
		))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("handler panic", "chat", msg.ChatID, "panic", rec)
		}
	}()

	now := r.now()
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return
	}

	r.trackUser(ctx, msg, now)

	isGroup := strings.HasSuffix(msg.ChatID, "@g.us")

	// Video-only groups are silent except for video links. This wins
	// over everything, including AI mode and commands. The admin is
	// exempt and keeps full command access inside the group.
	if isGroup && !r.isAdmin(msg.SenderID) {
		videoOnly, err := r.stores.Groups.IsVideoOnly(ctx, msg.ChatID)
		if err != nil {
			slog.Error("video-only lookup failed", "chat", msg.ChatID, "error", err)
		}
		if videoOnly {
			if url := firstURLToken(text); url != "" {
				r.downloadVideo(ctx, msg.ChatID, url, true)
			}
			return
		}
	}

	// Lazy AI-mode timeout: checked on the next message, never in the
	// background. An expired session gets a notice and the message then
	// flows through normal dispatch.
	if r.sessions.ExpireIfIdle(msg.ChatID, now, r.cfg.ChatTimeout()) {
		r.reply(ctx, msg.ChatID, "gpt_auto_timeout", map[string]string{
			"minutes": strconv.Itoa(r.cfg.ChatTimeoutMinutes()),
		})
	}

	if r.sessions.IsActive(msg.ChatID) {
		r.handleAIMode(ctx, msg, text, now)
		return
	}

	if sel := r.sessions.Selection(msg.ChatID); sel != nil && r.isAdmin(msg.SenderID) {
		if r.handleSelection(ctx, msg, text) {
			return
		}
	}

	intent := r.classify(text)
	span.SetAttributes(attribute.String("intent.handler", intent.Handler.String()))

	switch intent.Kind {
	case commands.KindGreeting:
		r.reply(ctx, msg.ChatID, "greeting", map[string]string{"name": displayName(msg)})
	case commands.KindAutoDownload:
		r.downloadVideo(ctx, msg.ChatID, intent.Args, false)
	case commands.KindCommand:
		if intent.AdminOnly && !r.isAdmin(msg.SenderID) {
			r.reply(ctx, msg.ChatID, "admin_only", nil)
			return
		}
		r.dispatch(ctx, msg, intent)
	case commands.KindNone:
		// Plain conversation the bot has nothing to say about. Stay
		// silent rather than nagging every chat with a hint.
	}
}

// handleAIMode runs while a chat session is active: off-phrases end it,
// explicit commands end it silently and fall through to dispatch,
// everything else goes to the assistant.
func (r *Router) handleAIMode(ctx context.Context, msg bus.InboundMessage, text string, now time.Time) {
	lower := strings.ToLower(text)
	squeezed := strings.ReplaceAll(lower, " ", "")
	for _, phrase := range aiOffPhrases {
		if strings.Contains(lower, phrase) || strings.Contains(squeezed, strings.ReplaceAll(phrase, " ", "")) {
			r.sessions.Deactivate(msg.ChatID)
			r.reply(ctx, msg.ChatID, "gpt_deactivated", nil)
			return
		}
	}

	// A prefixed command interrupts the conversation without ceremony:
	// deactivate, no confirmation, and dispatch the command itself.
	if strings.HasPrefix(lower, r.cfg.Prefix()) {
		if intent := r.classify(text); intent.Kind == commands.KindCommand {
			r.sessions.Deactivate(msg.ChatID)
			if intent.AdminOnly && !r.isAdmin(msg.SenderID) {
				r.reply(ctx, msg.ChatID, "admin_only", nil)
				return
			}
			r.dispatch(ctx, msg, intent)
			return
		}
	}

	r.sessions.Touch(msg.ChatID, now)
	reply, err := r.chat.Send(ctx, r.sessions.Token(msg.ChatID), text)
	if err != nil {
		slog.Error("chat provider failed", "chat", msg.ChatID, "error", err)
		r.reply(ctx, msg.ChatID, "gpt_error", nil)
		return
	}
	r.sessions.UpdateToken(msg.ChatID, reply.Token)
	r.send(ctx, msg.ChatID, formatForWhatsApp(reply.Text))
}

// handleSelection consumes a reply to a pending numbered choice.
// Returns false when the reply is an explicit command, which cancels the
// selection and falls through to normal dispatch.
func (r *Router) handleSelection(ctx context.Context, msg bus.InboundMessage, text string) bool {
	if strings.HasPrefix(strings.ToLower(text), r.cfg.Prefix()) {
		if intent := r.classify(text); intent.Kind == commands.KindCommand {
			r.sessions.CancelSelection(msg.ChatID)
			return false
		}
	}

	picked, action, result := r.sessions.ResolveSelection(msg.ChatID, text)
	switch result {
	case sessions.SelectionNotNumeric:
		r.reply(ctx, msg.ChatID, "selection_invalid", nil)
		return true
	case sessions.SelectionOutOfRange:
		sel := r.sessions.Selection(msg.ChatID)
		max := 0
		if sel != nil {
			max = len(sel.Candidates)
		}
		r.reply(ctx, msg.ChatID, "selection_range", map[string]string{"max": strconv.Itoa(max)})
		return true
	}

	r.applyVideoOnly(ctx, msg.ChatID, picked, action == sessions.SelectionEnableVideoOnly)
	return true
}

func (r *Router) trackUser(ctx context.Context, msg bus.InboundMessage, now time.Time) {
	isGroup := strings.HasSuffix(msg.ChatID, "@g.us")
	name := msg.SenderName
	if isGroup {
		// In groups the chat record stands for the group itself.
		name = msg.ChatName
	}
	if err := r.stores.Users.Track(ctx, msg.ChatID, name, isGroup, now); err != nil {
		slog.Warn("user tracking failed", "chat", msg.ChatID, "error", err)
	}
}

// isAdmin compares the sender against the configured admin number,
// ignoring formatting: "+1 555..." and "1555...@c.us" are the same
// person.
func (r *Router) isAdmin(senderID string) bool {
	admin := normalizePhone(r.cfg.AdminNumber())
	return admin != "" && normalizePhone(senderID) == admin
}

func (r *Router) reply(ctx context.Context, chatID, key string, vars map[string]string) {
	r.send(ctx, chatID, r.catalog.Render(key, vars))
}

func (r *Router) send(ctx context.Context, chatID, text string) {
	if err := r.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send failed", "chat", chatID, "error", err)
	}
}

func displayName(msg bus.InboundMessage) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	return "there"
}

func firstURLToken(text string) string {
	for _, tok := range strings.Fields(text) {
		lower := strings.ToLower(tok)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return tok
		}
	}
	return ""
}
