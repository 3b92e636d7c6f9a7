// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package sec

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewTokenID returns a sortable, unguessable identifier used as the jti of a
// token pair and as the lookup key of its session.
func NewTokenID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
