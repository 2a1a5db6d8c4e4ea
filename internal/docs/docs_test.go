package docs

import (
	"strings"
	"testing"
)

func TestAllReturnsTopics(t *testing.T) {
	topics := All()
	if len(topics) != 8 {
		t.Fatalf("All() returned %d topics, want 8", len(topics))
	}
	if topics[0].Name != "quickstart" {
		t.Errorf("first topic = %q, want %q", topics[0].Name, "quickstart")
	}
	for _, name := range []string{"workspace", "models", "cart", "downloads", "webuis", "hardware", "troubleshooting"} {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q): %v", name, err)
		}
	}
}

func TestAllNoDuplicateNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, topic := range All() {
		if seen[topic.Name] {
			t.Errorf("duplicate topic name: %q", topic.Name)
		}
		seen[topic.Name] = true
	}
}

func TestAllFieldsPopulated(t *testing.T) {
	for _, topic := range All() {
		if topic.Name == "" {
			t.Error("topic has empty Name")
		}
		if topic.Title == "" {
			t.Errorf("topic %q has empty Title", topic.Name)
		}
		if topic.Summary == "" {
			t.Errorf("topic %q has empty Summary", topic.Name)
		}
		if topic.Content == "" {
			t.Errorf("topic %q has empty Content", topic.Name)
		}
	}
}

func TestGetFound(t *testing.T) {
	topic, err := Get("cart")
	if err != nil {
		t.Fatalf("Get(cart) error: %v", err)
	}
	if topic.Name != "cart" {
		t.Errorf("Name = %q, want %q", topic.Name, "cart")
	}
	if !strings.Contains(topic.Content, "#model") {
		t.Error("cart topic does not document the #model marker")
	}
}

func TestGetNotFound(t *testing.T) {
	_, err := Get("nonexistent")
	if err == nil {
		t.Fatal("Get(nonexistent) should return error")
	}
}

func TestRender(t *testing.T) {
	topic, err := Get("quickstart")
	if err != nil {
		t.Fatal(err)
	}
	if got := Render(topic, false); got != topic.Content {
		t.Error("unstyled render should pass content through")
	}
	styled := Render(topic, true)
	if !strings.Contains(styled, "Quick Start") {
		t.Errorf("styled render lost the title:\n%s", styled[:min(len(styled), 200)])
	}
}
