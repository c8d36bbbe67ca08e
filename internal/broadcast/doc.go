// Package broadcast implements the real-time fanout channel: a hub that
// owns all connected WebSocket observers and pushes poll-set and
// vote-result notifications to them. Delivery is best-effort; a failed or
// slow client never affects the write that triggered the notification.
package broadcast
