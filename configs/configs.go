package configs

import "time"

var (
	Namespace        = "nullchat"
	HandshakeSegment = "handshake"
	ChatSegment      = "chat"

	// HKDF info labels. Each derived value gets its own label so that the
	// chat key, the chat topic and the rendezvous topic never share output.
	HKDFInfoChatKey        = []byte("nullchat/v1/chat-key")
	HKDFInfoChatTopic      = []byte("nullchat/v1/chat-topic")
	HKDFInfoHandshakeTopic = []byte("nullchat/v1/handshake-topic")

	// TopicIDSize is the number of derived bytes encoded into a topic name.
	TopicIDSize = 16

	QRTTL            = 60 * time.Second
	FingerprintBytes = 4

	RelayURL      = "ws://localhost:8080/ws"
	RedisAddress  = "localhost:6379"
	ListenAddress = ":8080"
	WebSocketPath = "/ws"
	MetricsPath   = "/metrics"
	HealthPath    = "/healthz"

	// Key-value store keys

	IdentityStoreKey = "nullchat-identity"
	RedisKeyPrefix   = "nullchat:kv:%s"
)
