// Package messages holds every user-facing reply the bot can send.
// Keeping them in one catalog makes the wording reviewable in one place
// and lets deployments override individual strings from configuration.
package messages

import "strings"

// Catalog maps message keys to templates with {placeholder} slots.
type Catalog map[string]string

// Default returns the built-in reply catalog.
func Default() Catalog {
	return Catalog{
		"greeting": "Hello {name}! I'm SnapBot. Type *menu* to see what I can do.",

		"menu": "*SnapBot Commands*\n\n" +
			"*gpt on* - chat with AI (stays on until you say gpt off)\n" +
			"*download* <url> - download a video from a link\n" +
			"*short* <url> [alias] [password] - shorten a link\n" +
			"*mylinks* - list your shortened links\n" +
			"*stats* <id> - click stats for a link\n" +
			"*checkwa* <number> - check if a number is on WhatsApp\n" +
			"*getavatar* <number> - fetch a profile picture\n" +
			"*contactinfo* <number> - fetch contact details\n\n" +
			"You can also just paste a video link and I'll grab it.",

		"dev_menu": "*Admin Commands*\n\n" +
			"*alllinks* - every shortened link across users\n" +
			"*videoonly on|off* - toggle video-only mode for a group\n",

		"gpt_activated":   "AI chat is on. Everything you send here goes to the assistant. Say *gpt off* when you're done.",
		"gpt_deactivated": "AI chat is off. Back to regular commands.",
		"gpt_usage":       "Send *gpt on* to start AI chat, *gpt off* to stop it.",
		"gpt_auto_timeout": "AI chat switched off after {minutes} minutes of quiet. " +
			"Say *gpt on* to start again.",
		"gpt_error": "The assistant is not reachable right now. Try again in a bit.",

		"admin_only":      "That one is admin only.",
		"unknown_command": "I didn't catch that. Type *menu* to see what I can do.",

		"downloading_video":     "On it, fetching your video...",
		"video_download_failed": "Couldn't download that video. The link may be private or unsupported.",
		"video_sent_fallback":   "Couldn't attach the file, but here's the direct link:\n{url}",
		"download_usage":        "Send *download* followed by a video link.",

		"shorten_usage":    "Send *short* followed by a link, optionally with a custom alias and password.",
		"shorten_ok":       "Done! {short}",
		"shorten_password": "🔒 *Password:* {password}",
		"shorten_failed":   "Couldn't shorten that link: {reason}",
		"mylinks_empty":    "You haven't shortened any links yet.",
		"mylinks_header":   "*Your links* (page {page})\n\n",
		"mylinks_line":     "{n}. {short} -> {long}\n",
		"stats_usage":      "Send *stats* followed by a link id from *mylinks*.",
		"stats_not_found":  "No link with that id.",
		"stats_body": "*Link stats*\nClicks: {clicks}\nUnique: {unique}\n" +
			"Top countries: {countries}\nTop browsers: {browsers}",
		"alllinks_empty":  "No links shortened yet.",
		"alllinks_header": "*All links*\n\n",

		"videoonly_usage":    "Send *videoonly on* or *videoonly off*.",
		"videoonly_pick":     "Which group?\n\n{options}\nReply with the number.",
		"videoonly_none":     "I don't know any groups yet. Say something in a group first.",
		"videoonly_all_set":  "Every group I know is already set that way.",
		"videoonly_enabled":  "Video-only mode is on for *{group}*. I'll stay quiet there except for video links.",
		"videoonly_disabled": "Video-only mode is off for *{group}*.",
		"selection_invalid":  "Just the number, please.",
		"selection_range":    "Pick a number between 1 and {max}.",

		"checkwa_usage": "Send *checkwa* followed by a phone number.",
		"checkwa_yes":   "{number} is on WhatsApp.",
		"checkwa_no":    "{number} is not on WhatsApp.",
		"checkwa_needs_country_code": "{number} starts with 0 but isn't 11 digits. " +
			"Add the country code, e.g. 923001234567.",
		"avatar_usage":       "Send *getavatar* followed by a phone number.",
		"avatar_unavailable": "No profile picture available for {number}.",
		"contact_usage":      "Send *contactinfo* followed by a phone number.",
		"contact_body":       "*{name}*\nNumber: {number}\nAbout: {about}",
		"contact_failed":     "Couldn't fetch info for {number}.",
	}
}

// Render looks up key and substitutes {placeholder} slots from vars.
// Unknown keys render as the key itself so a missing entry is visible in
// chat instead of silently dropping the reply.
func (c Catalog) Render(key string, vars map[string]string) string {
	tmpl, ok := c[key]
	if !ok {
		return key
	}
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Merge overlays non-empty overrides onto the catalog, returning a copy.
func (c Catalog) Merge(overrides map[string]string) Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
