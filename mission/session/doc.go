// Package session provides session management for the Mars rover mission server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the session manager. Each service.Session owns its own
// engine.Mission built from the plan it was created with.
//
// Session Identifiers:
//
// Generated IDs are the first eight hex characters of a random UUID.
// Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(engine.WithInputPolicy(engine.SkipInvalidInput))
//
//	sess, err := manager.Create("", plan)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
//	// Drop sessions idle for more than an hour
//	removed := manager.CleanupExpiredSessions(time.Hour)
package session
