package commands

import "strings"

// Kind classifies what a message is asking for.
type Kind int

const (
	KindNone Kind = iota
	KindGreeting
	KindCommand
	KindAutoDownload
)

// Intent is the classifier's verdict for one message.
type Intent struct {
	Kind      Kind
	Handler   HandlerID
	AdminOnly bool
	Args      string // remainder after the matched command phrase
	Raw       string
}

// greetings are matched as a prefix of short messages (three tokens at
// most), so "hello!" still greets. Longer messages that merely start
// with "hi" are conversation, not greeting.
var greetings = []string{"hi", "hello", "hey", "greetings", "hola", "salaam", "salam"}

const (
	maxMessageTokens = 15
	maxCommandWindow = 5
	maxURLTokens     = 5
)

// Classifier turns raw message text into intents against a registry.
type Classifier struct {
	registry *Registry
	prefix   string
}

func NewClassifier(registry *Registry, prefix string) *Classifier {
	if prefix == "" {
		prefix = "."
	}
	return &Classifier{registry: registry, prefix: prefix}
}

// Classify resolves the intent of a message. Precedence: greetings first,
// then explicit prefix commands, then the bare-URL guard, then bare-word
// command matching over growing token windows.
func (c *Classifier) Classify(text string) Intent {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)
	tokens := strings.Fields(lower)

	if len(tokens) == 0 || len(tokens) > maxMessageTokens {
		return Intent{Kind: KindNone, Raw: raw}
	}

	if isGreeting(lower, tokens) {
		return Intent{Kind: KindGreeting, Handler: HandlerGreeting, Raw: raw}
	}

	explicit := strings.HasPrefix(lower, c.prefix)

	// A short URL-bearing message whose first word is not itself a
	// command reads as "download this", not as a typo of a command.
	if !explicit && len(tokens) <= maxURLTokens && containsURL(tokens) {
		if c.registry.ResolveAlias(tokens[0]) == nil {
			return Intent{
				Kind:    KindAutoDownload,
				Handler: HandlerAutoDownload,
				Args:    firstURL(tokens),
				Raw:     raw,
			}
		}
	}

	// Strip the prefix off the first token so matching sees the bare
	// command word whatever the configured prefix is.
	if explicit {
		tokens[0] = strings.TrimPrefix(tokens[0], c.prefix)
	}

	if def, matched := c.matchWindows(tokens); def != nil {
		args := strings.TrimSpace(strings.Join(strings.Fields(raw)[matched:], " "))
		return Intent{
			Kind:      KindCommand,
			Handler:   def.Handler,
			AdminOnly: def.AdminOnly,
			Args:      args,
			Raw:       raw,
		}
	}

	return Intent{Kind: KindNone, Raw: raw}
}

// matchWindows tries the first 1..5 tokens as a command phrase. The
// first window that matches wins, so a short command never swallows its
// own arguments while a wider window hunts for a longer alias.
func (c *Classifier) matchWindows(tokens []string) (*Definition, int) {
	limit := min(maxCommandWindow, len(tokens))
	for size := 1; size <= limit; size++ {
		if def := c.registry.matchAlias(strings.Join(tokens[:size], " ")); def != nil {
			return def, size
		}
	}
	return nil, 0
}

func isGreeting(lower string, tokens []string) bool {
	if len(tokens) > 3 {
		return false
	}
	for _, g := range greetings {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}

func containsURL(tokens []string) bool {
	return firstURL(tokens) != ""
}

func firstURL(tokens []string) string {
	for _, t := range tokens {
		if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
			return t
		}
	}
	return ""
}
