// Package api provides the AscendEX REST client.
//
// Public routes live under /api/pro/v1; signed routes are scoped by
// account group, e.g. /4/api/pro/v1/cash/balance. Every response is an
// envelope {"code": 0, "data": ...}; a non-zero code is an API error
// even under HTTP 200.
package api
