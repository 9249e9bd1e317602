package api

import (
	"hash/fnv"
	"sync"
)

const sessionLockStripes = 64

// sessionLocks serializes requests for the same session and form so the
// load-modify-save cycle in withSession cannot drop a concurrent update.
// Keys hash onto a fixed set of mutexes; unrelated sessions may share one.
type sessionLocks struct {
	stripes [sessionLockStripes]sync.Mutex
}

func (locks *sessionLocks) lock(sessionID string, form string) func() {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(form))
	_, _ = hash.Write([]byte{0})
	_, _ = hash.Write([]byte(sessionID))

	mutex := &locks.stripes[hash.Sum32()%sessionLockStripes]
	mutex.Lock()
	return mutex.Unlock
}
