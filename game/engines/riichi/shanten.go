package riichi

import "sync"

// ShantenOracle is the wait/shanten port. counts is the 34-histogram of
// the concealed tiles only; melds is the number of fixed called sets.
type ShantenOracle interface {
	// Shanten returns -1 for a complete hand, 0 for tenpai, otherwise the
	// minimum number of exchanges to tenpai.
	Shanten(counts Counts, melds int) int
	// Waits enumerates the kinds completing a 13-mod-3 concealed set.
	Waits(counts Counts, melds int) []Kind
}

// Searcher is the default oracle: pair/meld backtracking with chiitoi and
// kokushi specials, memoised per (counts, melds) key. Safe for concurrent
// use across games.
type Searcher struct {
	mu           sync.RWMutex
	shantenCache map[string]int
	agariCache   map[string]bool
	waitsCache   map[string][]Kind
}

func NewSearcher() *Searcher {
	return &Searcher{
		shantenCache: make(map[string]int, 4096),
		agariCache:   make(map[string]bool, 4096),
		waitsCache:   make(map[string][]Kind, 4096),
	}
}

func cacheKey(c Counts, melds int) string {
	var b [NumKinds + 1]byte
	for i := 0; i < NumKinds; i++ {
		b[i] = c[i]
	}
	b[NumKinds] = byte(melds)
	return string(b[:])
}

// Shanten implements ShantenOracle.
func (s *Searcher) Shanten(counts Counts, melds int) int {
	key := cacheKey(counts, melds)
	s.mu.RLock()
	if v, ok := s.shantenCache[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	best := shantenNormal(counts, melds)
	if melds == 0 {
		if v := shantenChiitoi(counts); v < best {
			best = v
		}
		if v := shantenKokushi(counts); v < best {
			best = v
		}
	}

	s.mu.Lock()
	s.shantenCache[key] = best
	s.mu.Unlock()
	return best
}

// Waits implements ShantenOracle.
func (s *Searcher) Waits(counts Counts, melds int) []Kind {
	key := cacheKey(counts, melds)
	s.mu.RLock()
	if v, ok := s.waitsCache[key]; ok {
		s.mu.RUnlock()
		out := make([]Kind, len(v))
		copy(out, v)
		return out
	}
	s.mu.RUnlock()

	var waits []Kind
	for k := 0; k < NumKinds; k++ {
		if counts[k] >= 4 {
			continue
		}
		work := counts
		work[k]++
		if s.IsWinning(work, melds) {
			waits = append(waits, Kind(k))
		}
	}

	s.mu.Lock()
	s.waitsCache[key] = append([]Kind(nil), waits...)
	s.mu.Unlock()
	return waits
}

// IsWinning reports whether the concealed set plus its melds forms a
// complete hand.
func (s *Searcher) IsWinning(counts Counts, melds int) bool {
	key := cacheKey(counts, melds)
	s.mu.RLock()
	if v, ok := s.agariCache[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	var ok bool
	if melds > 0 {
		ok = isAgariNormal(counts, melds)
	} else {
		ok = isAgariNormal(counts, 0) || isAgariChiitoi(counts) || isAgariKokushi(counts)
	}

	s.mu.Lock()
	s.agariCache[key] = ok
	s.mu.Unlock()
	return ok
}

// isAgariNormal searches pair first, then melds, over the 34 histogram.
func isAgariNormal(c Counts, melds int) bool {
	need := 4 - melds
	if need < 0 {
		return false
	}
	for j := 0; j < NumKinds; j++ {
		if c[j] < 2 {
			continue
		}
		work := c
		work[j] -= 2
		if canFormMelds(&work, need) {
			return true
		}
	}
	return false
}

func isAgariChiitoi(c Counts) bool {
	pairs := 0
	for i := 0; i < NumKinds; i++ {
		if c[i] != 0 && c[i] != 2 {
			return false
		}
		if c[i] == 2 {
			pairs++
		}
	}
	return pairs == 7
}

func isAgariKokushi(c Counts) bool {
	unique := 0
	pair := false
	for _, k := range yaochuuKinds {
		if c[k] > 0 {
			unique++
			if c[k] >= 2 {
				pair = true
			}
		}
		if c[k] > 2 {
			return false
		}
	}
	for i := 0; i < NumKinds; i++ {
		if c[i] > 0 && !Kind(i).IsYaochuu() {
			return false
		}
	}
	return unique == 13 && pair
}

func canFormMelds(c *Counts, need int) bool {
	if need == 0 {
		for i := 0; i < NumKinds; i++ {
			if c[i] != 0 {
				return false
			}
		}
		return true
	}

	i := -1
	for k := 0; k < NumKinds; k++ {
		if c[k] > 0 {
			i = k
			break
		}
	}
	if i == -1 {
		return false
	}

	if c[i] >= 3 {
		c[i] -= 3
		if canFormMelds(c, need-1) {
			c[i] += 3
			return true
		}
		c[i] += 3
	}
	if sequenceFits(i) && c[i] > 0 && c[i+1] > 0 && c[i+2] > 0 {
		c[i]--
		c[i+1]--
		c[i+2]--
		ok := canFormMelds(c, need-1)
		c[i]++
		c[i+1]++
		c[i+2]++
		if ok {
			return true
		}
	}
	return false
}

// sequenceFits reports whether kinds i, i+1, i+2 form a run in one suit.
func sequenceFits(i int) bool {
	k := Kind(i)
	return k.IsNumber() && k.Number() <= 7
}

func shantenChiitoi(c Counts) int {
	pairs, unique := 0, 0
	for i := 0; i < NumKinds; i++ {
		if c[i] > 0 {
			unique++
		}
		if c[i] >= 2 {
			pairs++
		}
	}
	sh := 6 - pairs
	if unique < 7 {
		sh += 7 - unique
	}
	return sh
}

func shantenKokushi(c Counts) int {
	unique := 0
	pair := false
	for _, k := range yaochuuKinds {
		if c[k] > 0 {
			unique++
			if c[k] >= 2 {
				pair = true
			}
		}
	}
	sh := 13 - unique
	if pair {
		sh--
	}
	return sh
}

func shantenNormal(c Counts, melds int) int {
	best := 8
	work := c
	dfsShanten(&work, melds, 0, 0, &best)
	return best
}

// dfsShanten explores meld/pair/taatsu extraction: m formed melds (fixed
// ones included), p the pair flag, t the partial-set count.
func dfsShanten(c *Counts, m, p, t int, best *int) {
	if m > 4 {
		return
	}

	t2 := t
	if limit := 4 - m; t2 > limit {
		t2 = limit
	}
	sh := 8 - 2*m - t2 - p
	if sh < *best {
		*best = sh
	}

	i := -1
	for k := 0; k < NumKinds; k++ {
		if c[k] > 0 {
			i = k
			break
		}
	}
	if i == -1 {
		return
	}

	if c[i] >= 3 {
		c[i] -= 3
		dfsShanten(c, m+1, p, t, best)
		c[i] += 3
	}
	if sequenceFits(i) && c[i] > 0 && c[i+1] > 0 && c[i+2] > 0 {
		c[i]--
		c[i+1]--
		c[i+2]--
		dfsShanten(c, m+1, p, t, best)
		c[i]++
		c[i+1]++
		c[i+2]++
	}
	if p == 0 && c[i] >= 2 {
		c[i] -= 2
		dfsShanten(c, m, 1, t, best)
		c[i] += 2
	}
	if c[i] >= 2 {
		// pair kept as a proto-triplet
		c[i] -= 2
		dfsShanten(c, m, p, t+1, best)
		c[i] += 2
	}
	if Kind(i).IsNumber() && Kind(i).Number() <= 8 && c[i] > 0 && c[i+1] > 0 {
		c[i]--
		c[i+1]--
		dfsShanten(c, m, p, t+1, best)
		c[i]++
		c[i+1]++
	}
	if Kind(i).IsNumber() && Kind(i).Number() <= 7 && c[i] > 0 && c[i+2] > 0 {
		c[i]--
		c[i+2]--
		dfsShanten(c, m, p, t+1, best)
		c[i]++
		c[i+2]++
	}

	c[i]--
	dfsShanten(c, m, p, t, best)
	c[i]++
}
