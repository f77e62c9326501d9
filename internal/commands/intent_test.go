package commands

import "testing"

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(testRegistry(t), ".")
}

func TestClassifyGreeting(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		text string
		want Kind
	}{
		{"hi", KindGreeting},
		{"Hello", KindGreeting},
		{"hello!", KindGreeting},
		{"hey there bot", KindGreeting},
		{"salaam", KindGreeting},
		{"hi how are you doing today", KindNone}, // too long to be a greeting
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Classify(tt.text).Kind; got != tt.want {
				t.Errorf("Classify(%q).Kind = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyCommands(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		name        string
		text        string
		wantHandler HandlerID
		wantArgs    string
	}{
		{"prefix command", ".menu", HandlerMenu, ""},
		{"prefix with args", ".short http://x.com myalias", HandlerShorten, "http://x.com myalias"},
		{"bare command", "menu", HandlerMenu, ""},
		{"typo command", "downlod", HandlerDownload, ""},
		{"squeezed multiword", "checkwhatsapp +15551234567", HandlerCheckWhatsApp, "+15551234567"},
		{"case insensitive", "GPT", HandlerChatbot, ""},
		// The first matching window wins, so a short command never
		// absorbs arguments that happen to resemble another alias.
		{"toggle arg survives", "gpt on", HandlerChatbot, "on"},
		{"admin toggle arg survives", "videoonly on", HandlerVideoOnly, "on"},
		{"short arg survives", ".short en http://x.com", HandlerShorten, "en http://x.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.Kind != KindCommand {
				t.Fatalf("Classify(%q).Kind = %d, want KindCommand", tt.text, got.Kind)
			}
			if got.Handler != tt.wantHandler {
				t.Errorf("Handler = %s, want %s", got.Handler, tt.wantHandler)
			}
			if got.Args != tt.wantArgs {
				t.Errorf("Args = %q, want %q", got.Args, tt.wantArgs)
			}
		})
	}
}

func TestClassifyCustomPrefix(t *testing.T) {
	c := NewClassifier(testRegistry(t), "!")

	got := c.Classify("!short http://x.com myalias")
	if got.Kind != KindCommand || got.Handler != HandlerShorten || got.Args != "http://x.com myalias" {
		t.Errorf("Classify(!short ...) = %+v", got)
	}
	if got := c.Classify("!menu"); got.Kind != KindCommand || got.Handler != HandlerMenu {
		t.Errorf("Classify(!menu) = %+v", got)
	}
}

func TestClassifyAutoDownload(t *testing.T) {
	c := testClassifier(t)

	got := c.Classify("http://example.com/video")
	if got.Kind != KindAutoDownload {
		t.Fatalf("bare URL Kind = %d, want KindAutoDownload", got.Kind)
	}
	if got.Args != "http://example.com/video" {
		t.Errorf("Args = %q", got.Args)
	}

	// A typo'd leading word is not an exact alias, so the URL wins.
	got = c.Classify("downlod http://a.com/v")
	if got.Kind != KindAutoDownload {
		t.Errorf("typo'd alias with URL = %+v, want auto-download", got)
	}

	// Leading exact command alias keeps the message a command.
	got = c.Classify("short http://example.com/page")
	if got.Kind != KindCommand || got.Handler != HandlerShorten {
		t.Errorf("alias-led URL message = %+v, want shorten command", got)
	}

	// Long chatter mentioning a URL is neither.
	got = c.Classify("hey everyone you should really check this thing http://example.com out")
	if got.Kind == KindAutoDownload {
		t.Error("6+ word message must not auto-download")
	}
}

func TestClassifyNone(t *testing.T) {
	c := testClassifier(t)

	tests := []string{
		"",
		"   ",
		"what is the weather like",
		"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen",
	}
	for _, text := range tests {
		if got := c.Classify(text).Kind; got != KindNone {
			t.Errorf("Classify(%q).Kind = %d, want KindNone", text, got)
		}
	}
}

func TestClassifyAdminFlag(t *testing.T) {
	c := testClassifier(t)
	got := c.Classify(".videoonly")
	if got.Kind != KindCommand || !got.AdminOnly {
		t.Errorf("Classify(.videoonly) = %+v, want admin-only command", got)
	}
}
