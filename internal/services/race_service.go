package services

import (
	"context"
	"errors"
	"fmt"

	"racebook/internal/models"
	"racebook/internal/repository"
	"racebook/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrRaceNotFound      = errors.New("race not found")
	ErrInvalidTransition = errors.New("race is not in a state allowing this transition")
)

type RaceService struct {
	repo *repository.Repository
}

func NewRaceService(repo *repository.Repository) *RaceService {
	return &RaceService{repo: repo}
}

// CreateRace creates a race with its numbered horses. Horses can be
// named explicitly; unnamed slots get generated names.
func (rs *RaceService) CreateRace(ctx context.Context, req *models.CreateRaceRequest) (*models.Race, error) {
	count := req.HorseCount
	if len(req.HorseNames) > 0 {
		count = len(req.HorseNames)
	}
	if count < 2 {
		return nil, fmt.Errorf("a race needs at least 2 horses")
	}

	race := &models.Race{
		ID:          uuid.New(),
		Title:       req.Title,
		Status:      models.RaceStatusPending,
		HorseCount:  count,
		ScheduledAt: req.ScheduledAt,
	}

	for i := 0; i < count; i++ {
		name := ""
		if i < len(req.HorseNames) {
			name = req.HorseNames[i]
		}
		if name == "" {
			generated, err := utils.GenerateHorseName()
			if err != nil {
				return nil, fmt.Errorf("failed to generate horse name: %w", err)
			}
			name = generated
		}
		race.Horses = append(race.Horses, models.Horse{
			ID:     uuid.New(),
			RaceID: race.ID,
			Number: i + 1,
			Name:   name,
		})
	}

	if err := rs.repo.CreateRace(ctx, race); err != nil {
		return nil, fmt.Errorf("failed to create race: %w", err)
	}

	return race, nil
}

// OpenRace opens a pending race for betting
func (rs *RaceService) OpenRace(ctx context.Context, raceID uuid.UUID) error {
	ok, err := rs.repo.TransitionRaceStatus(ctx, raceID, models.RaceStatusPending, models.RaceStatusOpen)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

// CloseRace closes betting on an open race
func (rs *RaceService) CloseRace(ctx context.Context, raceID uuid.UUID) error {
	ok, err := rs.repo.TransitionRaceStatus(ctx, raceID, models.RaceStatusOpen, models.RaceStatusClosed)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

// GetRace returns a race with live per-horse pools and the
// pari-mutuel odds the next bettor would currently see.
func (rs *RaceService) GetRace(ctx context.Context, raceID uuid.UUID) (*models.RaceResponse, error) {
	race, err := rs.repo.GetRaceByID(ctx, raceID)
	if err != nil {
		return nil, ErrRaceNotFound
	}
	return rs.buildResponse(ctx, race)
}

// ListRaces returns races with pool data
func (rs *RaceService) ListRaces(ctx context.Context, limit, offset int) ([]*models.RaceResponse, error) {
	races, err := rs.repo.ListRaces(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.RaceResponse, 0, len(races))
	for _, race := range races {
		resp, err := rs.buildResponse(ctx, race)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (rs *RaceService) buildResponse(ctx context.Context, race *models.Race) (*models.RaceResponse, error) {
	pools, err := rs.repo.GetRacePools(ctx, race.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load race pools: %w", err)
	}

	byHorse := make(map[int]decimal.Decimal, len(pools))
	totalPool := decimal.Zero
	for _, p := range pools {
		byHorse[p.HorseNumber] = p.Total
		totalPool = totalPool.Add(p.Total)
	}

	resp := &models.RaceResponse{
		ID:           race.ID.String(),
		Title:        race.Title,
		Status:       string(race.Status),
		WinningHorse: race.WinningHorse,
		ScheduledAt:  race.ScheduledAt,
		TotalPool:    totalPool.String(),
	}

	for _, horse := range race.Horses {
		pool := byHorse[horse.Number]
		odds := ""
		if pool.IsPositive() {
			odds = totalPool.Div(pool).StringFixed(4)
		}
		resp.Horses = append(resp.Horses, models.HorseResponse{
			Number: horse.Number,
			Name:   horse.Name,
			Pool:   pool.String(),
			Odds:   odds,
		})
	}

	return resp, nil
}
