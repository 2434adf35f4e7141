package model

// PrestageScope is the serial-number scope of an enrollment prestage
// together with its optimistic-concurrency version lock. The lock is
// returned by the scope read and must accompany the write; the server
// rejects a write carrying a stale lock.
type PrestageScope struct {
	SerialNumbers []string `json:"serialNumbers"`
	VersionLock   int      `json:"versionLock"`
}

// Contains reports whether the serial is already in scope.
func (s *PrestageScope) Contains(serial string) bool {
	for _, sn := range s.SerialNumbers {
		if sn == serial {
			return true
		}
	}
	return false
}
