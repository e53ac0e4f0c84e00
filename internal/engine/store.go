package engine

// store holds all trading state in plain maps. It carries no lock of its
// own: every access happens under the Manager mutex.
type store struct {
	players      map[int64]*Player
	positions    map[string]*Position
	bySymbol     map[string]map[string]*Position
	byPlayer     map[int64]map[string]*Position
	closed       map[int64][]ClosedPosition
	historyLimit int
}

func newStore(historyLimit int) *store {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &store{
		players:      make(map[int64]*Player),
		positions:    make(map[string]*Position),
		bySymbol:     make(map[string]map[string]*Position),
		byPlayer:     make(map[int64]map[string]*Position),
		closed:       make(map[int64][]ClosedPosition),
		historyLimit: historyLimit,
	}
}

func (s *store) addPosition(p *Position) {
	s.positions[p.ID] = p
	if s.bySymbol[p.Symbol] == nil {
		s.bySymbol[p.Symbol] = make(map[string]*Position)
	}
	s.bySymbol[p.Symbol][p.ID] = p
	if s.byPlayer[p.PlayerID] == nil {
		s.byPlayer[p.PlayerID] = make(map[string]*Position)
	}
	s.byPlayer[p.PlayerID][p.ID] = p
}

func (s *store) removePosition(p *Position) {
	delete(s.positions, p.ID)
	if m := s.bySymbol[p.Symbol]; m != nil {
		delete(m, p.ID)
		if len(m) == 0 {
			delete(s.bySymbol, p.Symbol)
		}
	}
	if m := s.byPlayer[p.PlayerID]; m != nil {
		delete(m, p.ID)
		if len(m) == 0 {
			delete(s.byPlayer, p.PlayerID)
		}
	}
}

func (s *store) addClosed(c ClosedPosition) {
	list := append(s.closed[c.PlayerID], c)
	if len(list) > s.historyLimit {
		list = list[len(list)-s.historyLimit:]
	}
	s.closed[c.PlayerID] = list
}

// playerHasSymbol reports whether the player already holds an open position
// on symbol.
func (s *store) playerHasSymbol(playerID int64, symbol string) bool {
	for _, p := range s.byPlayer[playerID] {
		if p.Symbol == symbol {
			return true
		}
	}
	return false
}
