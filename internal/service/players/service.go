package players

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

const maxImportRows = 5000

// Service serves projection reads through a short TTL cache and ingests
// projection CSVs uploaded by admins.
type Service struct {
	players repository.PlayerRepository
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	players []domain.Player
	expires time.Time
}

// New constructs a players service with the given cache TTL.
func New(players repository.PlayerRepository, logger *slog.Logger, ttl time.Duration) *Service {
	return &Service{
		players: players,
		logger:  logger.With("component", "players"),
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// List returns projections, optionally filtered by position, from the cache
// when fresh.
func (s *Service) List(ctx context.Context, position string, limit, offset int) ([]domain.Player, error) {
	position = strings.ToUpper(strings.TrimSpace(position))
	switch position {
	case "", domain.PositionQB, domain.PositionRB, domain.PositionWR, domain.PositionTE:
	default:
		return nil, apperror.Validation("unknown position")
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("%s:%d:%d", position, limit, offset)
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && s.now().Before(entry.expires) {
		return entry.players, nil
	}

	players, err := s.players.ListPlayers(ctx, position, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list players", err)
	}
	s.mu.Lock()
	s.cache[key] = cacheEntry{players: players, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return players, nil
}

// Get fetches one player.
func (s *Service) Get(ctx context.Context, id string) (*domain.Player, error) {
	player, err := s.players.GetPlayerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.CodeNotFound, "player not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not load player", err)
	}
	return player, nil
}

// LastModified reports the newest projection timestamp for conditional GETs.
func (s *Service) LastModified(ctx context.Context) (time.Time, error) {
	ts, err := s.players.LatestPlayerUpdate(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, apperror.Wrap(apperror.CodeDatabase, "could not read player update time", err)
	}
	return ts, nil
}

// CacheTTL is exposed so the HTTP layer can set Cache-Control to match.
func (s *Service) CacheTTL() time.Duration { return s.ttl }

// ImportCSV ingests a projections CSV. The expected header is
// id,name,team,position,projected_points,position_rank,adp; rows upsert by
// the external id column.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, apperror.Wrap(apperror.CodeValidation, "could not read CSV header", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	players := make([]domain.Player, 0, 256)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, apperror.Wrap(apperror.CodeValidation, fmt.Sprintf("malformed CSV at line %d", line), err)
		}
		if len(players) >= maxImportRows {
			return 0, apperror.Validation(fmt.Sprintf("import exceeds %d rows", maxImportRows))
		}
		player, err := parseRow(record, cols, line)
		if err != nil {
			return 0, err
		}
		player.ID = uuid.NewString()
		player.UpdatedAt = now
		players = append(players, player)
	}
	if len(players) == 0 {
		return 0, apperror.Validation("CSV contains no rows")
	}

	count, err := s.players.UpsertPlayers(ctx, players)
	if err != nil {
		return 0, apperror.Wrap(apperror.CodeDatabase, "could not upsert players", err)
	}

	s.mu.Lock()
	s.cache = make(map[string]cacheEntry)
	s.mu.Unlock()

	s.logger.Info("projections imported", "rows", count)
	return count, nil
}

type columnMap struct {
	id, name, team, position, points, rank, adp int
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{id: -1, name: -1, team: -1, position: -1, points: -1, rank: -1, adp: -1}
	for i, raw := range header {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "id":
			cols.id = i
		case "name":
			cols.name = i
		case "team":
			cols.team = i
		case "position":
			cols.position = i
		case "projected_points":
			cols.points = i
		case "position_rank":
			cols.rank = i
		case "adp":
			cols.adp = i
		}
	}
	if cols.id < 0 || cols.name < 0 || cols.position < 0 || cols.points < 0 {
		return cols, apperror.Validation("CSV header must include id, name, position, projected_points")
	}
	return cols, nil
}

func parseRow(record []string, cols columnMap, line int) (domain.Player, error) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	player := domain.Player{
		ExternalID: field(cols.id),
		Name:       field(cols.name),
		Team:       strings.ToUpper(field(cols.team)),
		Position:   strings.ToUpper(field(cols.position)),
	}
	if player.ExternalID == "" || player.Name == "" {
		return player, apperror.Validation(fmt.Sprintf("missing id or name at line %d", line))
	}
	switch player.Position {
	case domain.PositionQB, domain.PositionRB, domain.PositionWR, domain.PositionTE:
	default:
		return player, apperror.Validation(fmt.Sprintf("unknown position %q at line %d", player.Position, line))
	}

	points, err := strconv.ParseFloat(field(cols.points), 64)
	if err != nil {
		return player, apperror.Validation(fmt.Sprintf("bad projected_points at line %d", line))
	}
	player.ProjectedPoints = points

	if raw := field(cols.rank); raw != "" {
		rank, err := strconv.Atoi(raw)
		if err != nil {
			return player, apperror.Validation(fmt.Sprintf("bad position_rank at line %d", line))
		}
		player.PositionRank = rank
	}
	if raw := field(cols.adp); raw != "" {
		adp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return player, apperror.Validation(fmt.Sprintf("bad adp at line %d", line))
		}
		player.ADP = adp
	}
	return player, nil
}
