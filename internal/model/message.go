package model

import "time"

// RoleUser 转发消息时固定使用的角色
const RoleUser = "user"

// OutboundMessage 转发给消息存储的聊天消息
type OutboundMessage struct {
	ProjectID string
	Content   string
	Role      string
	Timestamp time.Time
	Files     []string
}
