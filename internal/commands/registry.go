// Package commands implements the command registry and the intent
// classifier: it turns free-form chat text into a structured intent
// (greeting, command with arguments, bare URL, or nothing) without a
// rigid command syntax, tolerating typos and spacing mistakes.
package commands

import (
	"fmt"
	"strings"
)

// HandlerID identifies the handler a command routes to. A closed enum
// resolved once at registry build time — dispatch is a single switch, not
// a runtime string lookup.
type HandlerID int

const (
	HandlerNone HandlerID = iota
	HandlerGreeting
	HandlerMenu
	HandlerChatbot
	HandlerDownload
	HandlerAutoDownload
	HandlerDev
	HandlerCheckWhatsApp
	HandlerGetAvatar
	HandlerGetContactInfo
	HandlerShorten
	HandlerMyLinks
	HandlerStats
	HandlerAllLinks
	HandlerVideoOnly
)

var handlerNames = map[string]HandlerID{
	"greeting":       HandlerGreeting,
	"menu":           HandlerMenu,
	"chatbot":        HandlerChatbot,
	"download":       HandlerDownload,
	"auto_download":  HandlerAutoDownload,
	"dev":            HandlerDev,
	"checkwhatsapp":  HandlerCheckWhatsApp,
	"getavatar":      HandlerGetAvatar,
	"getcontactinfo": HandlerGetContactInfo,
	"shorten":        HandlerShorten,
	"mylinks":        HandlerMyLinks,
	"stats":          HandlerStats,
	"alllinks":       HandlerAllLinks,
	"videoonly":      HandlerVideoOnly,
}

// ParseHandlerID resolves a handler name from configuration.
func ParseHandlerID(name string) (HandlerID, error) {
	id, ok := handlerNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return HandlerNone, fmt.Errorf("unknown handler %q", name)
	}
	return id, nil
}

func (h HandlerID) String() string {
	for name, id := range handlerNames {
		if id == h {
			return name
		}
	}
	return "none"
}

// Spec declares one logical command as loaded from configuration.
type Spec struct {
	Aliases   []string
	Handler   string
	AdminOnly bool
}

// Definition is one resolved command: its normalized aliases, handler,
// and admin flag. Immutable after registry build.
type Definition struct {
	Aliases   []string // normalized (lowercase, dots stripped)
	Handler   HandlerID
	AdminOnly bool
}

// Registry maps aliases to command definitions. Built once per config
// load; lookups are case-insensitive exact matches. Fuzzy matching lives
// in the classifier, not here.
type Registry struct {
	defs    []Definition
	byAlias map[string]int // normalized alias -> index into defs
}

// NewRegistry builds a registry from config specs. Aliases are normalized
// and must be pairwise distinct across commands.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{byAlias: make(map[string]int)}

	for _, spec := range specs {
		handler, err := ParseHandlerID(spec.Handler)
		if err != nil {
			return nil, err
		}

		def := Definition{Handler: handler, AdminOnly: spec.AdminOnly}
		for _, alias := range spec.Aliases {
			norm := NormalizeAlias(alias)
			if norm == "" {
				continue
			}
			if prev, dup := r.byAlias[norm]; dup {
				prevHandler := handler
				if prev < len(r.defs) {
					prevHandler = r.defs[prev].Handler
				}
				return nil, fmt.Errorf("alias %q registered for both %s and %s",
					alias, prevHandler, handler)
			}
			def.Aliases = append(def.Aliases, norm)
			r.byAlias[norm] = len(r.defs)
		}
		if len(def.Aliases) == 0 {
			return nil, fmt.Errorf("command %s has no usable aliases", handler)
		}
		r.defs = append(r.defs, def)
	}

	return r, nil
}

// Empty reports whether the registry holds no commands (degraded mode).
func (r *Registry) Empty() bool { return len(r.defs) == 0 }

// ResolveAlias returns the definition for an exactly matching alias,
// case-insensitively, or nil.
func (r *Registry) ResolveAlias(token string) *Definition {
	if i, ok := r.byAlias[NormalizeAlias(token)]; ok {
		return &r.defs[i]
	}
	return nil
}

// walk visits every (alias, definition) pair in registration order.
// Fuzzy tie-breaks depend on this order being stable.
func (r *Registry) walk(fn func(alias string, def *Definition) bool) {
	for i := range r.defs {
		for _, alias := range r.defs[i].Aliases {
			if !fn(alias, &r.defs[i]) {
				return
			}
		}
	}
}

// NormalizeAlias lowercases and strips dots so ".check whatsapp" and
// "Check.Whatsapp" normalize identically. Internal spaces are preserved;
// space-insensitive comparison happens in the matcher.
func NormalizeAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ".", "")
}
