package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
	"github.com/topdog/backend/internal/ws"
	"github.com/topdog/backend/pkg/config"
)

const (
	sweepInterval = time.Second
	// fastPickThreshold is how many consecutive sub-gap picks it takes
	// before a user is flagged.
	fastPickThreshold = 3
)

// Service runs draft rooms: seating, snake turn order, the pick clock, and
// snapshot fan-out. Expired clocks auto-pick the best available player by
// ADP.
type Service struct {
	drafts   repository.DraftRepository
	contests repository.ContestRepository
	players  repository.PlayerRepository
	hub      *ws.Hub
	logger   *slog.Logger
	cfg      config.APIConfig
	now      func() time.Time

	mu       sync.Mutex
	pickPace map[string]pickPace
}

type pickPace struct {
	lastPick time.Time
	lastUser string
	streak   int
}

// New constructs a draft service.
func New(drafts repository.DraftRepository, contests repository.ContestRepository, players repository.PlayerRepository, hub *ws.Hub, logger *slog.Logger, cfg config.APIConfig) *Service {
	if hub == nil {
		hub = ws.NewHub()
	}
	return &Service{
		drafts:   drafts,
		contests: contests,
		players:  players,
		hub:      hub,
		logger:   logger.With("component", "draft"),
		cfg:      cfg,
		now:      time.Now,
		pickPace: make(map[string]pickPace),
	}
}

// Hub exposes the realtime hub for websocket and SSE subscribers.
func (s *Service) Hub() *ws.Hub { return s.hub }

// Run sweeps expired pick clocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	s.logger.Info("draft clock sweeper started", "interval", sweepInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("draft clock sweeper stopped")
			return
		case <-ticker.C:
			s.sweepExpired(ctx)
		}
	}
}

// CreateRoom opens a waiting room for a contest; seats follow the contest's
// entrant cap.
func (s *Service) CreateRoom(ctx context.Context, contestID, hostID string) (*domain.DraftRoom, error) {
	contest, err := s.contests.GetContestByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.CodeNotFound, "contest not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not load contest", err)
	}
	room := &domain.DraftRoom{
		ID:         uuid.NewString(),
		ContestID:  contest.ID,
		HostID:     hostID,
		Seats:      contest.MaxEntrants,
		RosterSize: contest.RosterSize,
		Status:     domain.DraftStatusWaiting,
		Version:    1,
		PickClock:  s.cfg.DraftPickClock,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.drafts.CreateDraftRoom(ctx, room); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not create draft room", err)
	}
	seat := &domain.DraftSeat{RoomID: room.ID, UserID: hostID, Seat: 1, JoinedAt: s.now().UTC()}
	if err := s.drafts.AddDraftSeat(ctx, seat); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not seat host", err)
	}
	s.logger.Info("draft room created", "room_id", room.ID, "contest_id", contestID, "seats", room.Seats)
	return room, nil
}

// Join assigns the next free seat.
func (s *Service) Join(ctx context.Context, roomID, userID string) (*domain.DraftSeat, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.DraftStatusWaiting {
		return nil, apperror.New(apperror.CodeConflict, "draft already started")
	}
	seats, err := s.drafts.ListDraftSeats(ctx, roomID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list seats", err)
	}
	if len(seats) >= room.Seats {
		return nil, apperror.New(apperror.CodeConflict, "room is full")
	}
	for _, existing := range seats {
		if existing.UserID == userID {
			return nil, apperror.New(apperror.CodeConflict, "already seated")
		}
	}
	seat := &domain.DraftSeat{RoomID: roomID, UserID: userID, Seat: len(seats) + 1, JoinedAt: s.now().UTC()}
	if err := s.drafts.AddDraftSeat(ctx, seat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.New(apperror.CodeConflict, "seat taken")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not join room", err)
	}
	s.broadcastSnapshot(ctx, roomID)
	return seat, nil
}

// Start begins the draft. Only the host may start, and every seat must be
// filled so the snake order is fixed.
func (s *Service) Start(ctx context.Context, roomID, userID string) (*domain.DraftRoom, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != userID {
		return nil, apperror.New(apperror.CodeForbidden, "only the host can start the draft")
	}
	if room.Status != domain.DraftStatusWaiting {
		return nil, apperror.New(apperror.CodeConflict, "draft already started")
	}
	seats, err := s.drafts.ListDraftSeats(ctx, roomID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list seats", err)
	}
	if len(seats) != room.Seats {
		return nil, apperror.New(apperror.CodeConflict, fmt.Sprintf("room has %d of %d seats filled", len(seats), room.Seats))
	}
	room.Status = domain.DraftStatusActive
	room.CurrentPick = 1
	room.Deadline = s.now().UTC().Add(room.PickClock)
	room.Version++
	if err := s.drafts.UpdateDraftRoom(ctx, room); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not start draft", err)
	}
	s.broadcastSnapshot(ctx, roomID)
	s.logger.Info("draft started", "room_id", roomID, "seats", room.Seats)
	return room, nil
}

// Pick applies a user's selection for the current pick.
func (s *Service) Pick(ctx context.Context, roomID, userID, playerID string) (*domain.DraftPick, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.DraftStatusActive {
		return nil, apperror.New(apperror.CodeConflict, "draft is not active")
	}
	seats, err := s.drafts.ListDraftSeats(ctx, roomID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list seats", err)
	}
	onClockSeat := snakeSeat(room.CurrentPick, room.Seats)
	seat, ok := seatFor(seats, userID)
	if !ok {
		return nil, apperror.New(apperror.CodeForbidden, "not seated in this room")
	}
	if seat.Seat != onClockSeat {
		return nil, apperror.New(apperror.CodeConflict, "not your pick")
	}
	player, err := s.players.GetPlayerByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.CodeNotFound, "player not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not load player", err)
	}
	pick, err := s.applyPick(ctx, room, seat, player, false)
	if err != nil {
		return nil, err
	}
	s.trackPickPace(roomID, userID)
	return pick, nil
}

// Snapshot assembles the versioned room state sent to clients.
func (s *Service) Snapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	seats, err := s.drafts.ListDraftSeats(ctx, roomID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list seats", err)
	}
	picks, err := s.drafts.ListDraftPicks(ctx, roomID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list picks", err)
	}
	return buildSnapshot(room, seats, picks, s.now().UTC()), nil
}

// ListIntegrityFlags pages the admin review queue.
func (s *Service) ListIntegrityFlags(ctx context.Context, reviewed *bool, limit, offset int) ([]domain.DraftIntegrityFlag, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	flags, err := s.drafts.ListIntegrityFlags(ctx, reviewed, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list integrity flags", err)
	}
	return flags, nil
}

func (s *Service) getRoom(ctx context.Context, roomID string) (*domain.DraftRoom, error) {
	room, err := s.drafts.GetDraftRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.CodeNotFound, "draft room not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not load draft room", err)
	}
	return room, nil
}

// applyPick records the selection and advances the room. The unique index on
// (room_id, player_id) is what rejects a taken player under concurrency.
func (s *Service) applyPick(ctx context.Context, room *domain.DraftRoom, seat domain.DraftSeat, player *domain.Player, auto bool) (*domain.DraftPick, error) {
	pick := &domain.DraftPick{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		UserID:   seat.UserID,
		PlayerID: player.ID,
		Overall:  room.CurrentPick,
		Round:    (room.CurrentPick-1)/room.Seats + 1,
		Seat:     seat.Seat,
		Auto:     auto,
		PickedAt: s.now().UTC(),
	}
	if err := s.drafts.InsertDraftPick(ctx, pick); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.New(apperror.CodeConflict, "player already drafted")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not record pick", err)
	}

	totalPicks := room.Seats * room.RosterSize
	room.Version++
	if room.CurrentPick >= totalPicks {
		room.Status = domain.DraftStatusComplete
		room.Deadline = time.Time{}
	} else {
		room.CurrentPick++
		room.Deadline = s.now().UTC().Add(room.PickClock)
	}
	if err := s.drafts.UpdateDraftRoom(ctx, room); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not advance draft", err)
	}
	s.broadcastSnapshot(ctx, room.ID)
	if room.Status == domain.DraftStatusComplete {
		if err := s.contests.UpdateContestStatus(ctx, room.ContestID, domain.ContestStatusComplete); err != nil {
			s.logger.Warn("failed to complete contest", "contest_id", room.ContestID, "error", err)
		}
		s.logger.Info("draft completed", "room_id", room.ID)
	}
	return pick, nil
}

// sweepExpired auto-picks for every active room whose clock ran out.
func (s *Service) sweepExpired(ctx context.Context) {
	rooms, err := s.drafts.ListExpiredDraftRooms(ctx, s.now().UTC())
	if err != nil {
		s.logger.Warn("expired room sweep failed", "error", err)
		return
	}
	for i := range rooms {
		if err := s.autoPick(ctx, &rooms[i]); err != nil {
			s.logger.Warn("autopick failed", "room_id", rooms[i].ID, "error", err)
		}
	}
}

func (s *Service) autoPick(ctx context.Context, room *domain.DraftRoom) error {
	seats, err := s.drafts.ListDraftSeats(ctx, room.ID)
	if err != nil {
		return err
	}
	onClockSeat := snakeSeat(room.CurrentPick, room.Seats)
	var seat domain.DraftSeat
	found := false
	for _, candidate := range seats {
		if candidate.Seat == onClockSeat {
			seat = candidate
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no seat %d in room %s", onClockSeat, room.ID)
	}
	available, err := s.players.ListAvailablePlayers(ctx, room.ID, 1)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return errors.New("no players available for autopick")
	}
	_, err = s.applyPick(ctx, room, seat, &available[0], true)
	if err != nil {
		return err
	}
	s.logger.Info("autopicked on expired clock", "room_id", room.ID, "seat", seat.Seat, "player_id", available[0].ID)
	return nil
}

// trackPickPace flags users whose manual picks repeatedly land faster than
// the configured floor interval.
func (s *Service) trackPickPace(roomID, userID string) {
	minGap := s.cfg.DraftMinPickGap
	if minGap <= 0 {
		return
	}
	now := s.now()

	s.mu.Lock()
	pace := s.pickPace[roomID]
	fast := pace.lastUser == userID && !pace.lastPick.IsZero() && now.Sub(pace.lastPick) < minGap
	if fast {
		pace.streak++
	} else {
		pace.streak = 0
	}
	pace.lastPick = now
	pace.lastUser = userID
	s.pickPace[roomID] = pace
	shouldFlag := pace.streak >= fastPickThreshold
	if shouldFlag {
		pace.streak = 0
		s.pickPace[roomID] = pace
	}
	s.mu.Unlock()

	if !shouldFlag {
		return
	}
	flag := &domain.DraftIntegrityFlag{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		Reason:    domain.IntegrityReasonFastPicks,
		Detail:    fmt.Sprintf("%d consecutive picks under %s", fastPickThreshold, minGap),
		CreatedAt: now.UTC(),
	}
	if err := s.drafts.InsertIntegrityFlag(context.Background(), flag); err != nil {
		s.logger.Error("failed to record integrity flag", "room_id", roomID, "user_id", userID, "error", err)
		return
	}
	s.logger.Warn("draft integrity flag recorded", "room_id", roomID, "user_id", userID, "reason", flag.Reason)
}

func (s *Service) broadcastSnapshot(ctx context.Context, roomID string) {
	snapshot, err := s.Snapshot(ctx, roomID)
	if err != nil {
		s.logger.Warn("failed to build snapshot", "room_id", roomID, "error", err)
		return
	}
	payload, err := snapshot.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal snapshot", "room_id", roomID, "error", err)
		return
	}
	s.hub.Broadcast(roomID, payload)
}

func seatFor(seats []domain.DraftSeat, userID string) (domain.DraftSeat, bool) {
	for _, seat := range seats {
		if seat.UserID == userID {
			return seat, true
		}
	}
	return domain.DraftSeat{}, false
}

// snakeSeat maps a 1-based overall pick number to the seat on the clock:
// odd rounds run 1..N, even rounds N..1.
func snakeSeat(overall, seats int) int {
	if seats <= 0 {
		return 0
	}
	round := (overall - 1) / seats
	idx := (overall - 1) % seats
	if round%2 == 0 {
		return idx + 1
	}
	return seats - idx
}
