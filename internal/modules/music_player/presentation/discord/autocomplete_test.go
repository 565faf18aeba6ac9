package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestAutocompleteHandler_QueuePositionChoices(t *testing.T) {
	env := newTestEnv(t)

	if choices := env.autocomplete.queuePositionChoices(testGuildID); len(choices) != 0 {
		t.Errorf("expected no choices without a session, got %d", len(choices))
	}

	env.play(t, "a", "b", "c")

	choices := env.autocomplete.queuePositionChoices(testGuildID)
	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
	if choices[0].Name != "1. b" || choices[0].Value != 1 {
		t.Errorf("unexpected first choice %q = %v", choices[0].Name, choices[0].Value)
	}
	if choices[1].Name != "2. c" || choices[1].Value != 2 {
		t.Errorf("unexpected second choice %q = %v", choices[1].Name, choices[1].Value)
	}
}

func TestAutocompleteTarget(t *testing.T) {
	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{
			name: "play",
			data: discordgo.ApplicationCommandInteractionData{Name: "play"},
			want: "play",
		},
		{
			name: "skipto",
			data: discordgo.ApplicationCommandInteractionData{Name: "skipto"},
			want: "position",
		},
		{
			name: "queue remove",
			data: discordgo.ApplicationCommandInteractionData{
				Name:    "queue",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "remove"}},
			},
			want: "position",
		},
		{
			name: "queue list",
			data: discordgo.ApplicationCommandInteractionData{
				Name:    "queue",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "list"}},
			},
			want: "",
		},
		{
			name: "unknown",
			data: discordgo.ApplicationCommandInteractionData{Name: "volume"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := autocompleteTarget(tt.data); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("ああああああ", 5); got != "ああ..." {
		t.Errorf("expected rune-aware truncation, got %q", got)
	}
}
