package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder provides an abstraction for responding to Discord interactions.
// This interface enables testing handlers without a live Discord connection.
type Responder interface {
	// Respond sends a response to an interaction. After Defer, the deferred
	// response is edited instead.
	Respond(response *discordgo.InteractionResponse) error

	// Defer acknowledges the interaction so a slow handler can respond later.
	Defer() error
}

// DiscordResponder implements Responder using a live Discord session.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu       sync.Mutex
	deferred bool
}

// NewDiscordResponder creates a new DiscordResponder.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends a response to the interaction via Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	r.mu.Lock()
	deferred := r.deferred
	r.mu.Unlock()

	if !deferred {
		return r.session.InteractionRespond(r.interaction, response)
	}

	edit := &discordgo.WebhookEdit{}
	if data := response.Data; data != nil {
		edit.Content = &data.Content
		edit.Embeds = &data.Embeds
	}
	_, err := r.session.InteractionResponseEdit(r.interaction, edit)
	return err
}

// Defer sends a deferred "thinking" response.
func (r *DiscordResponder) Defer() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deferred {
		return nil
	}
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}
	r.deferred = true
	return nil
}

// MockResponder is a test double for Responder.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	Deferred     bool
	Err          error
}

// Respond records the response for testing.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.LastResponse = response
	return m.Err
}

// Defer records that the interaction was deferred.
func (m *MockResponder) Defer() error {
	m.Deferred = true
	return m.Err
}
