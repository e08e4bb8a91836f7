package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"medrelay/internal/core/domain"
)

func testEncryption() domain.EncryptionAdvertisement {
	return domain.EncryptionAdvertisement{
		Algorithm:   "AES-256-GCM",
		KeyExchange: "ECDH-P256",
	}
}

func member(id string, joinedAt time.Time) domain.Member {
	return domain.Member{
		ConnectionID: domain.ConnectionID(id),
		Identity: domain.Identity{
			UserID:   "user-" + id,
			UserName: "User " + id,
			Role:     domain.RolePatient,
		},
		JoinedAt: joinedAt,
	}
}

func TestRoomDirectory_JoinCreatesRoom(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	result, err := dir.Join(ctx, "room-42", member("c1", time.Now()))
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if !result.Created {
		t.Error("Created = false, want true for first join")
	}
	if result.Rejoined {
		t.Error("Rejoined = true, want false for first join")
	}
	if len(result.Others) != 0 {
		t.Errorf("Others = %d members, want 0", len(result.Others))
	}
	if result.Room.MemberCount != 1 {
		t.Errorf("MemberCount = %d, want 1", result.Room.MemberCount)
	}
	if result.Encryption.Algorithm != "AES-256-GCM" {
		t.Errorf("Encryption.Algorithm = %q, want AES-256-GCM", result.Encryption.Algorithm)
	}
	if !dir.Exists(ctx, "room-42") {
		t.Error("Exists() = false after join")
	}
}

func TestRoomDirectory_JoinReturnsExistingMembers(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	base := time.Now()
	if _, err := dir.Join(ctx, "room-42", member("c1", base)); err != nil {
		t.Fatalf("Join(c1) error = %v", err)
	}
	result, err := dir.Join(ctx, "room-42", member("c2", base.Add(time.Second)))
	if err != nil {
		t.Fatalf("Join(c2) error = %v", err)
	}

	if result.Created {
		t.Error("Created = true, want false for second join")
	}
	if len(result.Others) != 1 {
		t.Fatalf("Others = %d members, want 1", len(result.Others))
	}
	if result.Others[0].ConnectionID != "c1" {
		t.Errorf("Others[0] = %s, want c1", result.Others[0].ConnectionID)
	}
	if result.Room.MemberCount != 2 {
		t.Errorf("MemberCount = %d, want 2", result.Room.MemberCount)
	}
}

func TestRoomDirectory_OthersSortedByJoinTime(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	base := time.Now()
	// Insert out of order relative to join time.
	if _, err := dir.Join(ctx, "room-42", member("c3", base.Add(2*time.Second))); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.Join(ctx, "room-42", member("c1", base)); err != nil {
		t.Fatal(err)
	}
	result, err := dir.Join(ctx, "room-42", member("c2", base.Add(time.Second)))
	if err != nil {
		t.Fatal(err)
	}

	want := []domain.ConnectionID{"c1", "c3"}
	if len(result.Others) != len(want) {
		t.Fatalf("Others = %d members, want %d", len(result.Others), len(want))
	}
	for i, id := range want {
		if result.Others[i].ConnectionID != id {
			t.Errorf("Others[%d] = %s, want %s", i, result.Others[i].ConnectionID, id)
		}
	}
}

func TestRoomDirectory_RejoinIsIdempotent(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	base := time.Now()
	if _, err := dir.Join(ctx, "room-42", member("c1", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.Join(ctx, "room-42", member("c2", base.Add(time.Second))); err != nil {
		t.Fatal(err)
	}

	result, err := dir.Join(ctx, "room-42", member("c1", base.Add(2*time.Second)))
	if err != nil {
		t.Fatalf("rejoin error = %v", err)
	}
	if !result.Rejoined {
		t.Error("Rejoined = false, want true")
	}
	if result.Room.MemberCount != 2 {
		t.Errorf("MemberCount = %d after rejoin, want 2", result.Room.MemberCount)
	}
	if len(result.Others) != 1 || result.Others[0].ConnectionID != "c2" {
		t.Errorf("Others = %v, want exactly c2", result.Others)
	}
}

func TestRoomDirectory_LeaveLastMemberDestroysRoom(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	if _, err := dir.Join(ctx, "room-42", member("c1", time.Now())); err != nil {
		t.Fatal(err)
	}

	result, err := dir.Leave(ctx, "room-42", "c1")
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if !result.Removed {
		t.Error("Removed = false, want true")
	}
	if !result.Destroyed {
		t.Error("Destroyed = false, want true for last member")
	}
	if dir.Exists(ctx, "room-42") {
		t.Error("Exists() = true after room destroyed")
	}
	if dir.Count(ctx) != 0 {
		t.Errorf("Count() = %d, want 0", dir.Count(ctx))
	}
}

func TestRoomDirectory_LeaveReportsRemaining(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"c1", "c2", "c3"} {
		if _, err := dir.Join(ctx, "room-42", member(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	result, err := dir.Leave(ctx, "room-42", "c2")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Removed || result.Destroyed {
		t.Errorf("Removed = %v, Destroyed = %v, want true, false", result.Removed, result.Destroyed)
	}
	if len(result.Remaining) != 2 {
		t.Fatalf("Remaining = %d members, want 2", len(result.Remaining))
	}
	if result.Remaining[0].ConnectionID != "c1" || result.Remaining[1].ConnectionID != "c3" {
		t.Errorf("Remaining = %v, want c1, c3", result.Remaining)
	}
}

func TestRoomDirectory_LeaveUnknownRoomIsNoOp(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())

	result, err := dir.Leave(context.Background(), "no-such-room", "c1")
	if err != nil {
		t.Fatalf("Leave() error = %v, want nil", err)
	}
	if result.Removed || result.Destroyed {
		t.Errorf("Removed = %v, Destroyed = %v, want false, false", result.Removed, result.Destroyed)
	}
}

func TestRoomDirectory_LeaveNonMemberIsNoOp(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	if _, err := dir.Join(ctx, "room-42", member("c1", time.Now())); err != nil {
		t.Fatal(err)
	}

	result, err := dir.Leave(ctx, "room-42", "stranger")
	if err != nil {
		t.Fatal(err)
	}
	if result.Removed {
		t.Error("Removed = true for non-member, want false")
	}
	if !dir.Exists(ctx, "room-42") {
		t.Error("room was destroyed by a non-member leave")
	}
}

func TestRoomDirectory_SnapshotUnknownRoom(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())

	_, _, err := dir.Snapshot(context.Background(), "no-such-room")
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("Snapshot() error = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomDirectory_List(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	base := time.Now()
	if _, err := dir.Join(ctx, "room-b", member("c1", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.Join(ctx, "room-a", member("c2", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := dir.Join(ctx, "room-a", member("c3", base.Add(time.Second))); err != nil {
		t.Fatal(err)
	}

	infos := dir.List(ctx)
	if len(infos) != 2 {
		t.Fatalf("List() = %d rooms, want 2", len(infos))
	}
	if infos[0].ID != "room-a" || infos[0].MemberCount != 2 {
		t.Errorf("infos[0] = %+v, want room-a with 2 members", infos[0])
	}
	if infos[1].ID != "room-b" || infos[1].MemberCount != 1 {
		t.Errorf("infos[1] = %+v, want room-b with 1 member", infos[1])
	}
}

// A room exists in the directory iff it has at least one member, even
// under concurrent churn on the same room.
func TestRoomDirectory_ConcurrentJoinLeave(t *testing.T) {
	dir := NewRoomDirectory(testEncryption())
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", n)
			for j := 0; j < 100; j++ {
				if _, err := dir.Join(ctx, "room-42", member(id, time.Now())); err != nil {
					t.Errorf("Join() error = %v", err)
					return
				}
				if _, err := dir.Leave(ctx, "room-42", domain.ConnectionID(id)); err != nil {
					t.Errorf("Leave() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if dir.Exists(ctx, "room-42") {
		t.Error("room still exists after all members left")
	}
	if dir.Count(ctx) != 0 {
		t.Errorf("Count() = %d, want 0", dir.Count(ctx))
	}
}
