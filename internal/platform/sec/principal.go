// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package sec

// Principal is the identity attached to a request once its access token,
// account state, token version and session have all been checked.
type Principal struct {
	UserID       string
	Username     string
	TokenID      string
	TokenVersion int
}
