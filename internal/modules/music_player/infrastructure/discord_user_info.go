package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
)

var _ ports.UserInfoProvider = (*DiscordUserInfoProvider)(nil)

// DiscordUserInfoProvider resolves requester names from the gateway member
// cache, falling back to the REST API for members not yet cached.
type DiscordUserInfoProvider struct {
	state       *discordgo.State
	fetchMember func(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// NewDiscordUserInfoProvider creates a new DiscordUserInfoProvider.
func NewDiscordUserInfoProvider(session *discordgo.Session) *DiscordUserInfoProvider {
	return &DiscordUserInfoProvider{
		state: session.State,
		fetchMember: func(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
			return session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		},
	}
}

func (p *DiscordUserInfoProvider) GetUserInfo(
	ctx context.Context,
	guildID, userID snowflake.ID,
) (*ports.UserInfo, error) {
	member, err := p.member(ctx, guildID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	if member.User == nil {
		return nil, fmt.Errorf("member %s has no user", userID)
	}

	return &ports.UserInfo{
		DisplayName: displayName(member),
		AvatarURL:   member.AvatarURL(""),
	}, nil
}

func (p *DiscordUserInfoProvider) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if p.state != nil {
		member, err := p.state.Member(guildID, userID)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, discordgo.ErrStateNotFound) {
			return nil, err
		}
	}

	member, err := p.fetchMember(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild member: %w", err)
	}
	return member, nil
}

// displayName prefers the guild nickname, then the global display name.
func displayName(member *discordgo.Member) string {
	switch {
	case member.Nick != "":
		return member.Nick
	case member.User.GlobalName != "":
		return member.User.GlobalName
	default:
		return member.User.Username
	}
}
