package transport

import (
	"github.com/junsooki/deskview/internal/tdp"
)

// Compile-time checks that both transports carry TDP.
var (
	_ tdp.Conn = (*WebSocketConn)(nil)
	_ tdp.Conn = (*DataChannelConn)(nil)
)
