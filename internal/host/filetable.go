package host

import "sync"

// FileInfo describes one backend file registered with the interpreter
type FileInfo struct {
	Path  string // Database file path
	Mode  string // Open mode label, "read-write" or "read-only"
	Owner string // Variable name the file serves
}

// FileTable tracks the backend files the interpreter currently holds open,
// the way a shell's descriptor table tracks module-owned file descriptors
//
// Slots are handed out monotonically and never reused within a session, so
// a stale slot number can't accidentally release someone else's file
type FileTable struct {
	mu    sync.Mutex       // Protects slots and next
	slots map[int]FileInfo // Registered files by slot
	next  int              // Next slot number to hand out
}

// NewFileTable creates an empty file table
func NewFileTable() *FileTable {
	return &FileTable{slots: make(map[int]FileInfo)}
}

// Register records a newly opened file and returns its slot
func (ft *FileTable) Register(info FileInfo) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	slot := ft.next
	ft.next++
	ft.slots[slot] = info
	return slot
}

// Release frees a slot
// Reports whether the slot was held, releasing twice is harmless
func (ft *FileTable) Release(slot int) bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if _, ok := ft.slots[slot]; !ok {
		return false
	}
	delete(ft.slots, slot)
	return true
}

// Get returns the registration for a slot
func (ft *FileTable) Get(slot int) (FileInfo, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	info, ok := ft.slots[slot]
	return info, ok
}

// Slots returns a copy of all current registrations
func (ft *FileTable) Slots() map[int]FileInfo {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	out := make(map[int]FileInfo, len(ft.slots))
	for slot, info := range ft.slots {
		out[slot] = info
	}
	return out
}

// Len returns the number of registered files
func (ft *FileTable) Len() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	return len(ft.slots)
}
