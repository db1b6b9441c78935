package request

import (
	"context"

	"match-collector/internal/domain"
)

type FakeAPI struct {
	GetMatchFunc        func(ctx context.Context, id domain.MatchID) (*domain.MatchDocument, error)
	GetMatchHistoryFunc func(ctx context.Context, player domain.PlayerID, filter QueueFilter) ([]domain.MatchRef, error)
	GetPlayerTiersFunc  func(ctx context.Context, players []domain.PlayerID) (map[domain.PlayerID][]domain.TierEntry, error)
}

func (f *FakeAPI) GetMatch(ctx context.Context, id domain.MatchID) (*domain.MatchDocument, error) {
	if f.GetMatchFunc == nil {
		panic("GetMatch not expected")
	}
	return f.GetMatchFunc(ctx, id)
}

func (f *FakeAPI) GetMatchHistory(ctx context.Context, player domain.PlayerID, filter QueueFilter) ([]domain.MatchRef, error) {
	if f.GetMatchHistoryFunc == nil {
		panic("GetMatchHistory not expected")
	}
	return f.GetMatchHistoryFunc(ctx, player, filter)
}

func (f *FakeAPI) GetPlayerTiers(ctx context.Context, players []domain.PlayerID) (map[domain.PlayerID][]domain.TierEntry, error) {
	if f.GetPlayerTiersFunc == nil {
		panic("GetPlayerTiers not expected")
	}
	return f.GetPlayerTiersFunc(ctx, players)
}

func solo(tierName, rank string) []domain.TierEntry {
	return []domain.TierEntry{{Queue: RankedQueue, Tier: tierName, Rank: rank}}
}
