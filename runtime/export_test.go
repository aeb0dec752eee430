package runtime

// resetForTest clears the once-per-process initialization latch so lifecycle
// tests can run in sequence inside one test binary.
func resetForTest() {
	initMu.Lock()
	initDone = false
	active = nil
	initMu.Unlock()
}
