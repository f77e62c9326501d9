package router

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/snapxhq/snapbot/internal/bus"
	"github.com/snapxhq/snapbot/internal/commands"
	"github.com/snapxhq/snapbot/internal/sessions"
	"github.com/snapxhq/snapbot/internal/store"
)

const linksPerPage = 10

func (r *Router) dispatch(ctx context.Context, msg bus.InboundMessage, intent commands.Intent) {
	switch intent.Handler {
	case commands.HandlerGreeting:
		r.reply(ctx, msg.ChatID, "greeting", map[string]string{"name": displayName(msg)})
	case commands.HandlerMenu:
		r.reply(ctx, msg.ChatID, "menu", nil)
	case commands.HandlerDev:
		r.reply(ctx, msg.ChatID, "dev_menu", nil)
	case commands.HandlerChatbot:
		r.handleChatbot(ctx, msg, intent.Args)
	case commands.HandlerDownload:
		r.handleDownload(ctx, msg.ChatID, intent.Args)
	case commands.HandlerAutoDownload:
		r.downloadVideo(ctx, msg.ChatID, intent.Args, false)
	case commands.HandlerCheckWhatsApp:
		r.handleCheckWhatsApp(ctx, msg.ChatID, intent.Args)
	case commands.HandlerGetAvatar:
		r.handleGetAvatar(ctx, msg.ChatID, intent.Args)
	case commands.HandlerGetContactInfo:
		r.handleGetContactInfo(ctx, msg.ChatID, intent.Args)
	case commands.HandlerShorten:
		r.handleShorten(ctx, msg, intent.Args)
	case commands.HandlerMyLinks:
		r.handleMyLinks(ctx, msg.ChatID, intent.Args)
	case commands.HandlerStats:
		r.handleStats(ctx, msg.ChatID, intent.Args)
	case commands.HandlerAllLinks:
		r.handleAllLinks(ctx, msg.ChatID, intent.Args)
	case commands.HandlerVideoOnly:
		r.handleVideoOnly(ctx, msg.ChatID, intent.Args)
	default:
		r.reply(ctx, msg.ChatID, "unknown_command", nil)
	}
}

// handleChatbot toggles AI mode. Anything that is not a recognized
// on/off word gets the usage text.
func (r *Router) handleChatbot(ctx context.Context, msg bus.InboundMessage, args string) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on", "activate", "enable", "start", "yes":
		r.sessions.Activate(msg.ChatID, r.now())
		r.reply(ctx, msg.ChatID, "gpt_activated", nil)
	case "off", "deactivate", "disable", "stop", "no":
		r.sessions.Deactivate(msg.ChatID)
		r.reply(ctx, msg.ChatID, "gpt_deactivated", nil)
	default:
		r.reply(ctx, msg.ChatID, "gpt_usage", nil)
	}
}

func (r *Router) handleDownload(ctx context.Context, chatID, args string) {
	url := firstURLToken(args)
	if url == "" {
		r.reply(ctx, chatID, "download_usage", nil)
		return
	}
	r.downloadVideo(ctx, chatID, url, false)
}

// downloadVideo resolves and sends a video. quiet suppresses the
// progress and failure chatter for video-only groups, where the bot
// either delivers a video or says nothing.
func (r *Router) downloadVideo(ctx context.Context, chatID, url string, quiet bool) {
	if !quiet {
		r.reply(ctx, chatID, "downloading_video", nil)
	}

	media, err := r.video.Resolve(ctx, url)
	if err != nil {
		slog.Warn("video resolve failed", "chat", chatID, "url", url, "error", err)
		if !quiet {
			r.reply(ctx, chatID, "video_download_failed", nil)
		}
		return
	}

	name := fileNameFor(media.Title)
	if err := r.sender.SendFileByURL(ctx, chatID, media.URL, name, media.Title); err != nil {
		slog.Error("video send failed", "chat", chatID, "error", err)
		if !quiet {
			r.reply(ctx, chatID, "video_sent_fallback", map[string]string{"url": media.URL})
		}
	}
}

func (r *Router) handleCheckWhatsApp(ctx context.Context, chatID, args string) {
	phone, needsCode := canonicalPhone(args)
	if phone == "" {
		r.reply(ctx, chatID, "checkwa_usage", nil)
		return
	}
	if needsCode {
		r.reply(ctx, chatID, "checkwa_needs_country_code", map[string]string{"number": phone})
		return
	}
	exists, err := r.sender.CheckWhatsApp(ctx, phone)
	if err != nil {
		slog.Error("checkWhatsapp failed", "error", err)
		r.reply(ctx, chatID, "checkwa_no", map[string]string{"number": args})
		return
	}
	key := "checkwa_no"
	if exists {
		key = "checkwa_yes"
	}
	r.reply(ctx, chatID, key, map[string]string{"number": strings.TrimSpace(args)})
}

func (r *Router) handleGetAvatar(ctx context.Context, chatID, args string) {
	phone, needsCode := canonicalPhone(args)
	if phone == "" {
		r.reply(ctx, chatID, "avatar_usage", nil)
		return
	}
	if needsCode {
		r.reply(ctx, chatID, "checkwa_needs_country_code", map[string]string{"number": phone})
		return
	}
	target := phone + "@c.us"

	url, available, err := r.sender.GetAvatar(ctx, target)
	if err != nil || !available {
		if err != nil {
			slog.Error("getAvatar failed", "error", err)
		}
		r.reply(ctx, chatID, "avatar_unavailable", map[string]string{"number": strings.TrimSpace(args)})
		return
	}

	// Send a bounded thumbnail; fall back to letting the provider fetch
	// the original URL if local processing chokes on the image.
	if thumb, err := r.avatars.FetchThumbnail(ctx, url); err == nil {
		if err := r.sender.SendFileByUpload(ctx, chatID, "avatar.jpg", thumb, ""); err == nil {
			return
		}
	}
	if err := r.sender.SendFileByURL(ctx, chatID, url, "avatar.jpg", ""); err != nil {
		slog.Error("avatar send failed", "error", err)
		r.reply(ctx, chatID, "avatar_unavailable", map[string]string{"number": strings.TrimSpace(args)})
	}
}

func (r *Router) handleGetContactInfo(ctx context.Context, chatID, args string) {
	phone, needsCode := canonicalPhone(args)
	if phone == "" {
		r.reply(ctx, chatID, "contact_usage", nil)
		return
	}
	if needsCode {
		r.reply(ctx, chatID, "checkwa_needs_country_code", map[string]string{"number": phone})
		return
	}

	info, err := r.sender.GetContactInfo(ctx, phone+"@c.us")
	if err != nil {
		slog.Error("getContactInfo failed", "error", err)
		r.reply(ctx, chatID, "contact_failed", map[string]string{"number": strings.TrimSpace(args)})
		return
	}

	name := info.Name
	if name == "" {
		name = info.ContactName
	}
	if name == "" {
		name = "Unknown"
	}
	r.reply(ctx, chatID, "contact_body", map[string]string{
		"name":   name,
		"number": strings.TrimSpace(args),
		"about":  info.About,
	})
}

func (r *Router) handleShorten(ctx context.Context, msg bus.InboundMessage, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 || !isHTTPURL(fields[0]) {
		r.reply(ctx, msg.ChatID, "shorten_usage", nil)
		return
	}
	longURL := fields[0]
	var custom, password string
	if len(fields) > 1 {
		custom = fields[1]
	}
	if len(fields) > 2 {
		password = fields[2]
	}

	link, err := r.shortener.Shorten(ctx, longURL, custom, password)
	if err != nil {
		slog.Warn("shorten failed", "url", longURL, "error", err)
		r.reply(ctx, msg.ChatID, "shorten_failed", map[string]string{"reason": userFacingReason(err)})
		return
	}

	if err := r.stores.Links.Save(ctx, store.Link{
		UserChat:  msg.ChatID,
		LinkID:    link.ID,
		ShortURL:  link.ShortURL,
		LongURL:   longURL,
		Password:  password,
		CreatedAt: r.now(),
	}); err != nil {
		slog.Error("link save failed", "error", err)
	}

	text := r.catalog.Render("shorten_ok", map[string]string{"short": link.ShortURL})
	if password != "" {
		text += "\n" + r.catalog.Render("shorten_password", map[string]string{"password": password})
	}
	r.send(ctx, msg.ChatID, text)
}

func (r *Router) handleMyLinks(ctx context.Context, chatID, args string) {
	page := parsePage(args)
	links, err := r.stores.Links.ListByUser(ctx, chatID, linksPerPage, (page-1)*linksPerPage)
	if err != nil {
		slog.Error("list links failed", "error", err)
		r.reply(ctx, chatID, "mylinks_empty", nil)
		return
	}
	if len(links) == 0 {
		r.reply(ctx, chatID, "mylinks_empty", nil)
		return
	}
	r.send(ctx, chatID, r.renderLinkList("mylinks_header", links, page))
}

func (r *Router) handleAllLinks(ctx context.Context, chatID, args string) {
	page := parsePage(args)
	links, err := r.stores.Links.ListAll(ctx, linksPerPage, (page-1)*linksPerPage)
	if err != nil {
		slog.Error("list all links failed", "error", err)
		r.reply(ctx, chatID, "alllinks_empty", nil)
		return
	}
	if len(links) == 0 {
		r.reply(ctx, chatID, "alllinks_empty", nil)
		return
	}
	r.send(ctx, chatID, r.renderLinkList("alllinks_header", links, page))
}

func (r *Router) renderLinkList(headerKey string, links []store.Link, page int) string {
	var b strings.Builder
	b.WriteString(r.catalog.Render(headerKey, map[string]string{"page": strconv.Itoa(page)}))
	for i, l := range links {
		b.WriteString(r.catalog.Render("mylinks_line", map[string]string{
			"n":     strconv.Itoa((page-1)*linksPerPage + i + 1),
			"short": l.ShortURL,
			"long":  truncate(l.LongURL, 60),
		}))
	}
	return b.String()
}

func (r *Router) handleStats(ctx context.Context, chatID, args string) {
	id := strings.TrimSpace(args)
	if id == "" {
		r.reply(ctx, chatID, "stats_usage", nil)
		return
	}

	stats, err := r.shortener.Stats(ctx, id)
	if err != nil {
		slog.Warn("stats lookup failed", "id", id, "error", err)
		r.reply(ctx, chatID, "stats_not_found", nil)
		return
	}
	r.reply(ctx, chatID, "stats_body", map[string]string{
		"clicks":    strconv.FormatInt(stats.Clicks, 10),
		"unique":    strconv.FormatInt(stats.UniqueClicks, 10),
		"countries": topEntries(stats.TopCountries, 3),
		"browsers":  topEntries(stats.TopBrowsers, 3),
	})
}

// handleVideoOnly flips the video-only flag for a group. With an
// explicit group id the change applies immediately; without one the
// admin picks from a numbered list of groups not already in the target
// state, so the command works from any chat.
func (r *Router) handleVideoOnly(ctx context.Context, chatID, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		r.reply(ctx, chatID, "videoonly_usage", nil)
		return
	}

	var enable bool
	switch strings.ToLower(fields[0]) {
	case "on", "enable":
		enable = true
	case "off", "disable":
		enable = false
	default:
		r.reply(ctx, chatID, "videoonly_usage", nil)
		return
	}

	if len(fields) > 1 {
		groupID := fields[1]
		if !strings.HasSuffix(groupID, "@g.us") {
			groupID += "@g.us"
		}
		r.applyVideoOnly(ctx, chatID, sessions.Candidate{ID: groupID, DisplayName: groupID}, enable)
		return
	}

	groups, err := r.stores.Users.ListGroups(ctx)
	if err != nil {
		slog.Error("list groups failed", "error", err)
		r.reply(ctx, chatID, "videoonly_none", nil)
		return
	}

	// Only groups not already in the requested state are offered.
	var candidates []sessions.Candidate
	var options strings.Builder
	for _, g := range groups {
		if g.VideoOnly == enable {
			continue
		}
		candidates = append(candidates, sessions.Candidate{ID: g.GroupID, DisplayName: g.DisplayName})
		fmt.Fprintf(&options, "%d. %s\n", len(candidates), g.DisplayName)
	}
	if len(candidates) == 0 {
		if len(groups) == 0 {
			r.reply(ctx, chatID, "videoonly_none", nil)
		} else {
			r.reply(ctx, chatID, "videoonly_all_set", nil)
		}
		return
	}

	action := sessions.SelectionDisableVideoOnly
	if enable {
		action = sessions.SelectionEnableVideoOnly
	}
	r.sessions.BeginSelection(chatID, action, candidates, r.now())
	r.reply(ctx, chatID, "videoonly_pick", map[string]string{"options": options.String()})
}

// applyVideoOnly persists the flag and confirms to the admin.
func (r *Router) applyVideoOnly(ctx context.Context, chatID string, group sessions.Candidate, enable bool) {
	if err := r.stores.Groups.SetVideoOnly(ctx, group.ID, enable, r.now()); err != nil {
		slog.Error("set video-only failed", "group", group.ID, "error", err)
		r.reply(ctx, chatID, "videoonly_usage", nil)
		return
	}
	key := "videoonly_disabled"
	if enable {
		key = "videoonly_enabled"
	}
	r.reply(ctx, chatID, key, map[string]string{"group": group.DisplayName})
}

/// formatForWhatsApp rewrites common markdown into WhatsApp's dialect:
// heading markers are dropped and **bold** becomes *bold*.
func formatForWhatsApp(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = strings.TrimLeft(strings.TrimLeft(trimmed, "#"), " ")
		}
	}
	out := strings.Join(lines, "\n")
	return strings.ReplaceAll(out, "**", "*")
}

// normalizePhone strips the chat-id suffix and every non-digit so phone
// comparisons ignore formatting.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"@c.us", "@g.us"} {
		s = strings.TrimSuffix(s, suffix)
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// canonicalPhone strips formatting and maps a local 11-digit 0-prefixed
// number to the 92 country code. Any other 0-prefixed length is
// ambiguous and reported via needsCode.
func canonicalPhone(s string) (digits string, needsCode bool) {
	digits = normalizePhone(s)
	if !strings.HasPrefix(digits, "0") {
		return digits, false
	}
	if len(digits) == 11 {
		return "92" + digits[1:], false
	}
	return digits, true
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func parsePage(args string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 {
		return n
	}
	return 1
}

func fileNameFor(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "video.mp4"
	}
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50])
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, title)
	return clean + ".mp4"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// topEntries renders the top n counted entries as "Name (count)" joined
// with commas, highest first.
func topEntries(m map[string]int64, n int) string {
	if len(m) == 0 {
		return "none yet"
	}
	type entry struct {
		name  string
		count int64
	}
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%d)", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}

// userFacingReason trims provider prefixes off an error for chat
// display.
func userFacingReason(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}
