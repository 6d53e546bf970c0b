package draft

import (
	"context"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
	"github.com/topdog/backend/pkg/config"
)

func TestSnakeSeatOrder(t *testing.T) {
	cases := []struct {
		overall int
		seats   int
		want    int
	}{
		{1, 4, 1},
		{2, 4, 2},
		{4, 4, 4},
		{5, 4, 4}, // round two reverses
		{6, 4, 3},
		{8, 4, 1},
		{9, 4, 1}, // round three runs forward again
		{12, 4, 4},
		{13, 4, 4},
		{1, 1, 1},
		{3, 1, 1},
	}
	for _, tc := range cases {
		if got := snakeSeat(tc.overall, tc.seats); got != tc.want {
			t.Fatalf("snakeSeat(%d, %d) = %d, want %d", tc.overall, tc.seats, got, tc.want)
		}
	}
}

func TestPickRejectsOutOfTurn(t *testing.T) {
	repo := newFakeDraftRepo(activeRoom(2, 2))
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	svc := newTestService(repo, &fakePlayers{})

	_, err := svc.Pick(context.Background(), "room-1", "bob", "p1")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT for out-of-turn pick, got %v", err)
	}
	if len(repo.picks) != 0 {
		t.Fatalf("expected no pick recorded, got %d", len(repo.picks))
	}
}

func TestPickRejectsUnseatedUser(t *testing.T) {
	repo := newFakeDraftRepo(activeRoom(2, 2))
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	svc := newTestService(repo, &fakePlayers{})

	_, err := svc.Pick(context.Background(), "room-1", "mallory", "p1")
	if apperror.CodeOf(err) != apperror.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestPickAdvancesAndResetsClock(t *testing.T) {
	repo := newFakeDraftRepo(activeRoom(2, 2))
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	svc := newTestService(repo, &fakePlayers{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	pick, err := svc.Pick(context.Background(), "room-1", "alice", "p1")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if pick.Overall != 1 || pick.Round != 1 || pick.Seat != 1 || pick.Auto {
		t.Fatalf("unexpected pick %+v", pick)
	}
	room := repo.room
	if room.CurrentPick != 2 {
		t.Fatalf("expected pick to advance to 2, got %d", room.CurrentPick)
	}
	if !room.Deadline.Equal(base.Add(room.PickClock)) {
		t.Fatalf("expected deadline reset to %s, got %s", base.Add(room.PickClock), room.Deadline)
	}
	if room.Version != 3 {
		t.Fatalf("expected version bump to 3, got %d", room.Version)
	}
}

func TestPickRejectsTakenPlayer(t *testing.T) {
	repo := newFakeDraftRepo(activeRoom(2, 2))
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	repo.insertPickErr = repository.ErrDuplicate
	svc := newTestService(repo, &fakePlayers{})

	_, err := svc.Pick(context.Background(), "room-1", "alice", "p1")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT for taken player, got %v", err)
	}
}

func TestFinalPickCompletesRoomAndContest(t *testing.T) {
	room := activeRoom(2, 1)
	room.CurrentPick = 2
	repo := newFakeDraftRepo(room)
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	contests := &fakeContests{}
	svc := newTestService(repo, &fakePlayers{})
	svc.contests = contests

	if _, err := svc.Pick(context.Background(), "room-1", "bob", "p2"); err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if repo.room.Status != domain.DraftStatusComplete {
		t.Fatalf("expected room complete, got %q", repo.room.Status)
	}
	if contests.lastStatus != domain.ContestStatusComplete {
		t.Fatalf("expected contest completed, got %q", contests.lastStatus)
	}
}

func TestSweepAutoPicksBestAvailable(t *testing.T) {
	room := activeRoom(2, 2)
	room.Deadline = time.Now().UTC().Add(-time.Second)
	repo := newFakeDraftRepo(room)
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	players := &fakePlayers{available: []domain.Player{
		{ID: "p-best", Name: "Best Available", ADP: 1.2},
	}}
	svc := newTestService(repo, players)

	svc.sweepExpired(context.Background())

	if len(repo.picks) != 1 {
		t.Fatalf("expected one autopick, got %d", len(repo.picks))
	}
	pick := repo.picks[0]
	if !pick.Auto {
		t.Fatal("expected pick marked auto")
	}
	if pick.PlayerID != "p-best" {
		t.Fatalf("expected best available player, got %q", pick.PlayerID)
	}
	if pick.UserID != "alice" {
		t.Fatalf("expected seat one on the clock, got %q", pick.UserID)
	}
}

func TestFastPickStreakFlagsUser(t *testing.T) {
	repo := newFakeDraftRepo(activeRoom(2, 18))
	svc := newTestService(repo, &fakePlayers{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc.now = func() time.Time { return now }

	for i := 0; i < fastPickThreshold+1; i++ {
		svc.trackPickPace("room-1", "alice")
		now = now.Add(100 * time.Millisecond) // under the configured floor
	}

	if len(repo.flags) != 1 {
		t.Fatalf("expected one integrity flag, got %d", len(repo.flags))
	}
	flag := repo.flags[0]
	if flag.Reason != domain.IntegrityReasonFastPicks || flag.UserID != "alice" {
		t.Fatalf("unexpected flag %+v", flag)
	}
}

func TestFastPickStreakResetsOnSlowPick(t *testing.T) {
	repo := newFakeDraftRepo(activeRoom(2, 18))
	svc := newTestService(repo, &fakePlayers{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc.now = func() time.Time { return now }

	svc.trackPickPace("room-1", "alice")
	now = now.Add(100 * time.Millisecond)
	svc.trackPickPace("room-1", "alice")
	now = now.Add(10 * time.Second) // slow pick breaks the streak
	svc.trackPickPace("room-1", "alice")
	now = now.Add(100 * time.Millisecond)
	svc.trackPickPace("room-1", "alice")

	if len(repo.flags) != 0 {
		t.Fatalf("expected no integrity flags, got %d", len(repo.flags))
	}
}

func TestJoinFullRoomConflicts(t *testing.T) {
	room := waitingRoom(2, 18)
	repo := newFakeDraftRepo(room)
	repo.seats = []domain.DraftSeat{
		{RoomID: "room-1", UserID: "alice", Seat: 1},
		{RoomID: "room-1", UserID: "bob", Seat: 2},
	}
	svc := newTestService(repo, &fakePlayers{})

	_, err := svc.Join(context.Background(), "room-1", "carol")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT for full room, got %v", err)
	}
}

func TestStartRequiresHostAndFullRoom(t *testing.T) {
	room := waitingRoom(2, 18)
	repo := newFakeDraftRepo(room)
	repo.seats = []domain.DraftSeat{{RoomID: "room-1", UserID: "alice", Seat: 1}}
	svc := newTestService(repo, &fakePlayers{})

	if _, err := svc.Start(context.Background(), "room-1", "bob"); apperror.CodeOf(err) != apperror.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for non-host, got %v", err)
	}
	if _, err := svc.Start(context.Background(), "room-1", "alice"); apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT for unfilled room, got %v", err)
	}

	repo.seats = append(repo.seats, domain.DraftSeat{RoomID: "room-1", UserID: "bob", Seat: 2})
	started, err := svc.Start(context.Background(), "room-1", "alice")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if started.Status != domain.DraftStatusActive || started.CurrentPick != 1 {
		t.Fatalf("unexpected room state %+v", started)
	}
}

func activeRoom(seats, rosterSize int) *domain.DraftRoom {
	return &domain.DraftRoom{
		ID:          "room-1",
		ContestID:   "contest-1",
		HostID:      "alice",
		Seats:       seats,
		RosterSize:  rosterSize,
		Status:      domain.DraftStatusActive,
		Version:     2,
		CurrentPick: 1,
		PickClock:   30 * time.Second,
		Deadline:    time.Now().UTC().Add(30 * time.Second),
	}
}

func waitingRoom(seats, rosterSize int) *domain.DraftRoom {
	room := activeRoom(seats, rosterSize)
	room.Status = domain.DraftStatusWaiting
	room.Version = 1
	room.CurrentPick = 0
	room.Deadline = time.Time{}
	return room
}

func newTestService(repo *fakeDraftRepo, playerRepo *fakePlayers) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := config.APIConfig{
		DraftPickClock:  30 * time.Second,
		DraftMinPickGap: 750 * time.Millisecond,
	}
	return New(repo, &fakeContests{}, playerRepo, nil, logger, cfg)
}

type fakeDraftRepo struct {
	room          *domain.DraftRoom
	seats         []domain.DraftSeat
	picks         []domain.DraftPick
	flags         []domain.DraftIntegrityFlag
	insertPickErr error
}

func newFakeDraftRepo(room *domain.DraftRoom) *fakeDraftRepo {
	return &fakeDraftRepo{room: room}
}

func (f *fakeDraftRepo) CreateDraftRoom(_ context.Context, room *domain.DraftRoom) error {
	f.room = room
	return nil
}

func (f *fakeDraftRepo) GetDraftRoom(_ context.Context, id string) (*domain.DraftRoom, error) {
	if f.room == nil || f.room.ID != id {
		return nil, repository.ErrNotFound
	}
	roomCopy := *f.room
	return &roomCopy, nil
}

func (f *fakeDraftRepo) UpdateDraftRoom(_ context.Context, room *domain.DraftRoom) error {
	if room.Version <= f.room.Version {
		return repository.ErrInvalidArgument
	}
	roomCopy := *room
	f.room = &roomCopy
	return nil
}

func (f *fakeDraftRepo) ListExpiredDraftRooms(_ context.Context, now time.Time) ([]domain.DraftRoom, error) {
	if f.room != nil && f.room.Status == domain.DraftStatusActive && !f.room.Deadline.After(now) {
		return []domain.DraftRoom{*f.room}, nil
	}
	return nil, nil
}

func (f *fakeDraftRepo) AddDraftSeat(_ context.Context, seat *domain.DraftSeat) error {
	f.seats = append(f.seats, *seat)
	return nil
}

func (f *fakeDraftRepo) ListDraftSeats(context.Context, string) ([]domain.DraftSeat, error) {
	return f.seats, nil
}

func (f *fakeDraftRepo) InsertDraftPick(_ context.Context, pick *domain.DraftPick) error {
	if f.insertPickErr != nil {
		return f.insertPickErr
	}
	f.picks = append(f.picks, *pick)
	return nil
}

func (f *fakeDraftRepo) ListDraftPicks(context.Context, string) ([]domain.DraftPick, error) {
	return f.picks, nil
}

func (f *fakeDraftRepo) InsertIntegrityFlag(_ context.Context, flag *domain.DraftIntegrityFlag) error {
	f.flags = append(f.flags, *flag)
	return nil
}

func (f *fakeDraftRepo) ListIntegrityFlags(context.Context, *bool, int, int) ([]domain.DraftIntegrityFlag, error) {
	return f.flags, nil
}

type fakeContests struct {
	lastStatus string
}

func (f *fakeContests) CreateContest(context.Context, *domain.Contest) error { return nil }

func (f *fakeContests) GetContestByID(_ context.Context, id string) (*domain.Contest, error) {
	return &domain.Contest{ID: id, MaxEntrants: 2, RosterSize: 18, Status: domain.ContestStatusOpen}, nil
}

func (f *fakeContests) ListContests(context.Context, string, int, int) ([]domain.Contest, error) {
	return nil, nil
}

func (f *fakeContests) UpdateContestStatus(_ context.Context, _, status string) error {
	f.lastStatus = status
	return nil
}

func (f *fakeContests) CreateContestEntry(context.Context, *domain.ContestEntry) error { return nil }

type fakePlayers struct {
	available []domain.Player
}

func (f *fakePlayers) UpsertPlayers(context.Context, []domain.Player) (int, error) { return 0, nil }

func (f *fakePlayers) ListPlayers(context.Context, string, int, int) ([]domain.Player, error) {
	return nil, nil
}

func (f *fakePlayers) GetPlayerByID(_ context.Context, id string) (*domain.Player, error) {
	return &domain.Player{ID: id, Name: "Player " + id, Position: domain.PositionRB}, nil
}

func (f *fakePlayers) ListAvailablePlayers(_ context.Context, _ string, limit int) ([]domain.Player, error) {
	if limit < len(f.available) {
		return f.available[:limit], nil
	}
	return f.available, nil
}

func (f *fakePlayers) LatestPlayerUpdate(context.Context) (time.Time, error) {
	return time.Time{}, nil
}
