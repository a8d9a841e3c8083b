// Package http exposes the hotel booking API over HTTP.
//
// Responses use a JSON envelope: {"data": ...} on success and
// {"error": {"code", "message", "fields"}} on failure. Application errors are
// mapped to status codes in one place (responder.go): validation 400,
// authentication 401, authorization and failed step-up 403, missing records
// 404, conflicts 409 and rate limiting 429.
//
// The RPC style endpoints are POST /login,
// /register, /logout, /create-staff-account, /check-room-availability,
// /update-staff-account, /delete-account and /update-password. Rooms,
// amenities, services, reservations, inquiries, payments and revenue
// statistics are served as resources; see NewRouter for the full table.
//
// Sessions are bearer tokens read from the Authorization header or the
// session_token cookie. Login and registration are rate limited per client
// address when a RateLimiter is configured.
package http
