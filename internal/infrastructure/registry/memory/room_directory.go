package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
)

type room struct {
	id        domain.RoomID
	createdAt time.Time
	members   map[domain.ConnectionID]domain.Member
	mu        sync.Mutex
}

// RoomDirectory is the in-memory ports.RoomDirectory. The directory
// map and each room are locked separately so unrelated rooms never
// serialize against each other; the directory lock is only held long
// enough to resolve or reclaim a room entry. Lock order is always
// directory then room.
type RoomDirectory struct {
	rooms      map[domain.RoomID]*room
	encryption domain.EncryptionAdvertisement
	mu         sync.RWMutex
}

func NewRoomDirectory(encryption domain.EncryptionAdvertisement) ports.RoomDirectory {
	return &RoomDirectory{
		rooms:      make(map[domain.RoomID]*room),
		encryption: encryption,
	}
}

func (d *RoomDirectory) Join(ctx context.Context, roomID domain.RoomID, member domain.Member) (*domain.JoinResult, error) {
	d.mu.Lock()
	rm, exists := d.rooms[roomID]
	created := false
	if !exists {
		rm = &room{
			id:        roomID,
			createdAt: time.Now(),
			members:   make(map[domain.ConnectionID]domain.Member),
		}
		d.rooms[roomID] = rm
		created = true
	}
	rm.mu.Lock()
	d.mu.Unlock()
	defer rm.mu.Unlock()

	_, rejoined := rm.members[member.ConnectionID]

	others := make([]domain.Member, 0, len(rm.members))
	for id, m := range rm.members {
		if id != member.ConnectionID {
			others = append(others, m)
		}
	}
	sortMembers(others)

	rm.members[member.ConnectionID] = member

	return &domain.JoinResult{
		Room: domain.RoomInfo{
			ID:          rm.id,
			CreatedAt:   rm.createdAt,
			MemberCount: len(rm.members),
		},
		Encryption: d.encryption,
		Others:     others,
		Created:    created,
		Rejoined:   rejoined,
	}, nil
}

func (d *RoomDirectory) Leave(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID) (*domain.LeaveResult, error) {
	// The directory lock is held across the whole removal so that the
	// empty-room reclaim cannot race a concurrent join resolving the
	// same entry: a room is present in the map iff it has members.
	d.mu.Lock()
	defer d.mu.Unlock()

	rm, exists := d.rooms[roomID]
	if !exists {
		return &domain.LeaveResult{}, nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, member := rm.members[id]; !member {
		return &domain.LeaveResult{}, nil
	}
	delete(rm.members, id)

	if len(rm.members) == 0 {
		delete(d.rooms, roomID)
		return &domain.LeaveResult{Removed: true, Destroyed: true}, nil
	}

	remaining := make([]domain.Member, 0, len(rm.members))
	for _, m := range rm.members {
		remaining = append(remaining, m)
	}
	sortMembers(remaining)

	return &domain.LeaveResult{Removed: true, Remaining: remaining}, nil
}

func (d *RoomDirectory) Members(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	_, members, err := d.Snapshot(ctx, roomID)
	return members, err
}

func (d *RoomDirectory) Exists(ctx context.Context, roomID domain.RoomID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.rooms[roomID]
	return exists
}

func (d *RoomDirectory) Snapshot(ctx context.Context, roomID domain.RoomID) (*domain.RoomInfo, []domain.Member, error) {
	d.mu.RLock()
	rm, exists := d.rooms[roomID]
	d.mu.RUnlock()

	if !exists {
		return nil, nil, domain.ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	// The room may have been reclaimed between the two locks.
	if len(rm.members) == 0 {
		return nil, nil, domain.ErrRoomNotFound
	}

	members := make([]domain.Member, 0, len(rm.members))
	for _, m := range rm.members {
		members = append(members, m)
	}
	sortMembers(members)

	info := &domain.RoomInfo{
		ID:          rm.id,
		CreatedAt:   rm.createdAt,
		MemberCount: len(members),
	}
	return info, members, nil
}

func (d *RoomDirectory) List(ctx context.Context) []domain.RoomInfo {
	d.mu.RLock()
	rooms := make([]*room, 0, len(d.rooms))
	for _, rm := range d.rooms {
		rooms = append(rooms, rm)
	}
	d.mu.RUnlock()

	infos := make([]domain.RoomInfo, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		infos = append(infos, domain.RoomInfo{
			ID:          rm.id,
			CreatedAt:   rm.createdAt,
			MemberCount: len(rm.members),
		})
		rm.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (d *RoomDirectory) Count(ctx context.Context) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.rooms)
}

// sortMembers orders by join time, oldest first, so participant lists
// are stable for clients and tests.
func sortMembers(members []domain.Member) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ConnectionID < members[j].ConnectionID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
}
