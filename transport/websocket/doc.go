// Package websocket pushes live mission updates to browsers and tools.
//
// A Hub groups connections into one room per session. Subscribers join with
// the ?session= query parameter and receive only that session's frames. Each
// frame is a single JSON message:
//
//	{"session_id": "3f2a9c1b", "seq": 0, "event": "snapshot", "mission_state": {...}}
//	{"session_id": "3f2a9c1b", "seq": 4, "event": "rover_skipped", "data": {...}}
//
// The snapshot sent on connect carries seq 0. Later frames count up from 1
// per session, so a gap means the subscriber missed an update and should
// fetch /api/sessions/{id}/state.
//
// Usage:
//
//	hub := websocket.NewHub(logger.New("websocket"))
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastToSession(sessionID, state)
//
// Broadcasts never block the caller. A full hub queue drops the message, and
// a subscriber whose outbox is full is disconnected.
package websocket
