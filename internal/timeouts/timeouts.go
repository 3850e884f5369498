// Package timeouts collects the durations shared by the transport, the HTTP
// command channel and the process lifecycle.
package timeouts

import "time"

// Dial caps the websocket handshake.
const Dial = 5 * time.Second

// Write caps a single websocket frame write.
const Write = 3 * time.Second

// Request caps one HTTP command round trip, including a token refresh retry.
const Request = 10 * time.Second

// Shutdown limits how long the bridge server waits for in-flight requests.
const Shutdown = 5 * time.Second

// Prompt is the default wall-clock budget a player has to answer a prompt.
const Prompt = 30 * time.Second

// Notification is how long a notification stays visible.
const Notification = 3 * time.Second
