// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package rbac

import (
	"context"
	"time"
)

// Store is the read side the [Resolver] needs.
type Store interface {

	/*
		UserGrants returns the role names and the union of their permission
		names for userID, skipping assignments that expired before now.

		Parameters:
		  - ctx: context.Context
		  - userID: string
		  - now: time.Time

		Returns:
		  - Grants: Possibly empty grant set (unknown users have none)
		  - error: Database retrieval failures
	*/
	UserGrants(ctx context.Context, userID string, now time.Time) (Grants, error)
}
