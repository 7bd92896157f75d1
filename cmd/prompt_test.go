package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestPromptLine(t *testing.T) {
	var out bytes.Buffer
	got, err := promptLine(strings.NewReader("  services/api \n"), &out, "folder? ")
	if err != nil || got != "services/api" {
		t.Fatalf("promptLine = %q, %v", got, err)
	}
	if out.String() != "folder? " {
		t.Fatalf("prompt = %q", out.String())
	}

	got, err = promptLine(strings.NewReader(""), &out, "folder? ")
	if err != nil || got != "" {
		t.Fatalf("empty input = %q, %v", got, err)
	}
}
