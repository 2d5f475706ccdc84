package relay

import "sync"

// Directory maps room names to their member sets. A room exists only while
// it has at least one member.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]map[ConnID]*Connection
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[ConnID]*Connection)}
}

// Join adds conn to room, creating the room if needed. It reports false when
// conn was already a member.
func (d *Directory) Join(room string, conn *Connection) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[ConnID]*Connection)
		d.rooms[room] = members
	}
	if _, exists := members[conn.id]; exists {
		return false
	}
	members[conn.id] = conn
	return true
}

// Leave removes conn from room and deletes the room once it is empty. It
// reports false when conn was not a member.
func (d *Directory) Leave(room string, conn *Connection) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		return false
	}
	if _, exists := members[conn.id]; !exists {
		return false
	}
	delete(members, conn.id)
	if len(members) == 0 {
		delete(d.rooms, room)
	}
	return true
}

// MembersOf returns a snapshot of room's members. The slice is owned by the
// caller and unaffected by later joins and leaves.
func (d *Directory) MembersOf(room string) []*Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[room]
	snapshot := make([]*Connection, 0, len(members))
	for _, conn := range members {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// RoomExists reports whether room currently has members.
func (d *Directory) RoomExists(room string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[room]
	return ok
}

// RoomsOf scans every room for id. Membership is single-room, so the result
// normally holds at most one name.
func (d *Directory) RoomsOf(id ConnID) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var rooms []string
	for name, members := range d.rooms {
		if _, ok := members[id]; ok {
			rooms = append(rooms, name)
		}
	}
	return rooms
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Clear drops every room.
func (d *Directory) Clear() {
	d.mu.Lock()
	d.rooms = make(map[string]map[ConnID]*Connection)
	d.mu.Unlock()
}
