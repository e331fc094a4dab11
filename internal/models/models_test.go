package models

import (
	"testing"

	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/constant"
)

func testProviders() map[string]*config.Provider {
	return map[string]*config.Provider{
		constant.Jaaz: {
			URL: "https://newapi.clinx.work/v1/",
			Models: map[string]*config.Model{
				"kimi-k2-0905-preview":      {Type: "text"},
				"jimeng_i2v_first_v30_1080": {Type: "video", DisplayName: "Jimeng3.0"},
			},
		},
		constant.Ollama: {
			URL: "http://localhost:11434",
			Models: map[string]*config.Model{
				"llama3": {},
			},
		},
	}
}

func TestListGatesHostedModelsOnLogin(t *testing.T) {
	t.Parallel()

	loggedIn := false
	svc := NewService(testProviders, func() bool { return loggedIn })

	entries := svc.List()
	if len(entries) != 1 {
		t.Fatalf("logged-out listing = %+v, want only the local model", entries)
	}
	if entries[0].Provider != constant.Ollama || entries[0].Model != "llama3" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	loggedIn = true
	entries = svc.List()
	if len(entries) != 3 {
		t.Fatalf("logged-in listing has %d entries, want 3", len(entries))
	}
}

func TestListOrderAndDefaults(t *testing.T) {
	t.Parallel()

	svc := NewService(testProviders, func() bool { return true })
	entries := svc.List()

	// Stable provider/model order.
	want := []string{"jimeng_i2v_first_v30_1080", "kimi-k2-0905-preview", "llama3"}
	for i, model := range want {
		if entries[i].Model != model {
			t.Fatalf("entries[%d] = %s, want %s", i, entries[i].Model, model)
		}
	}
	if entries[0].Type != "video" || entries[0].DisplayName != "Jimeng3.0" {
		t.Errorf("video entry metadata lost: %+v", entries[0])
	}
	// A model without an explicit type defaults to text.
	if entries[2].Type != "text" {
		t.Errorf("default type = %q, want text", entries[2].Type)
	}
}
