package greenapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "1101", "secrettoken", WithSendRate(6000))
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"idMessage":"abc"}`))
	})

	if err := c.SendMessage(context.Background(), "123@c.us", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotPath != "/waInstance1101/sendMessage/secrettoken" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chatId"] != "123@c.us" || gotBody["message"] != "hello" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSendMessageErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	err := c.SendMessage(context.Background(), "123@c.us", "hello")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want status error", err)
	}
}

func TestCheckWhatsApp(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "checkWhatsapp") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"existsWhatsapp":true}`))
	})
	ok, err := c.CheckWhatsApp(context.Background(), "15551234567")
	if err != nil || !ok {
		t.Errorf("CheckWhatsApp = %v, %v", ok, err)
	}
}

func TestGetAvatar(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		wantURL string
		wantOK  bool
	}{
		{"available", `{"urlAvatar":"https://pps.whatsapp.net/x","available":true}`, "https://pps.whatsapp.net/x", true},
		{"hidden", `{"urlAvatar":"","available":true}`, "", false},
		{"none", `{"urlAvatar":"","available":false}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.resp))
			})
			url, ok, err := c.GetAvatar(context.Background(), "123@c.us")
			if err != nil {
				t.Fatalf("GetAvatar: %v", err)
			}
			if url != tt.wantURL || ok != tt.wantOK {
				t.Errorf("got %q, %v; want %q, %v", url, ok, tt.wantURL, tt.wantOK)
			}
		})
	}
}

func TestGetSettings(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte(`{"wid":"15550001111@c.us"}`))
	})
	s, err := c.GetSettings(context.Background())
	if err != nil || s.WID != "15550001111@c.us" {
		t.Errorf("GetSettings = %+v, %v", s, err)
	}
}

func TestSendFileByUploadMultipart(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		if r.FormValue("chatId") != "123@c.us" {
			t.Errorf("chatId = %q", r.FormValue("chatId"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "avatar.jpg" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		w.Write([]byte(`{}`))
	})

	err := c.SendFileByUpload(context.Background(), "123@c.us", "avatar.jpg", []byte("jpegdata"), "")
	if err != nil {
		t.Fatalf("SendFileByUpload: %v", err)
	}
}
