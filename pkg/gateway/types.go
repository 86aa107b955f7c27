package gateway

import (
	"scholar/pkg/api"
)

// Re-export types from the api package via aliases so channel code can
// depend on either package interchangeably.
type Channel = api.Channel
type SignalingChannel = api.SignalingChannel
type MessageResponder = api.MessageResponder
type ChannelContext = api.ChannelContext
type UnifiedMessage = api.UnifiedMessage
type SessionContext = api.SessionContext
type MessageHandler = api.MessageHandler
