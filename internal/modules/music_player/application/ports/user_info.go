package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// UserInfo is how a requester is shown in notifications.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider looks up a guild member's display information.
type UserInfoProvider interface {
	GetUserInfo(ctx context.Context, guildID, userID snowflake.ID) (*UserInfo, error)
}
