package automaton

// MaxEdits bounds the edit distance Fuzzy accepts. Larger distances blow up the number of
// reachable states.
const MaxEdits = 2

// acceptAll is the sticky state entered once some prefix of the input is close enough to
// the target.
const acceptAll State = 0

// FuzzyAutomaton accepts every input that has a prefix within a bounded Levenshtein
// distance of a target. Distances are counted in bytes.
//
// States are determinized lazily and memoized, so a FuzzyAutomaton must not be shared
// between goroutines.
type FuzzyAutomaton struct {
	target   []byte
	maxEdits int
	exact    int
	rows     [][]uint8
	index    map[string]State
	scratch  []uint8
}

// Fuzzy returns an automaton accepting inputs whose prefix is within maxEdits of target.
// The first exactPrefix bytes of target must match without edits. maxEdits is clamped to
// [0, MaxEdits].
func Fuzzy(target []byte, maxEdits, exactPrefix int) *FuzzyAutomaton {
	if maxEdits < 0 {
		maxEdits = 0
	}
	if maxEdits > MaxEdits {
		maxEdits = MaxEdits
	}
	if exactPrefix < 0 {
		exactPrefix = 0
	}
	if exactPrefix > len(target) {
		exactPrefix = len(target)
	}
	a := &FuzzyAutomaton{
		target:   append([]byte(nil), target...),
		maxEdits: maxEdits,
		exact:    exactPrefix,
		rows:     [][]uint8{nil},
		index:    make(map[string]State),
		scratch:  make([]uint8, len(target)+1),
	}
	return a
}

func (a *FuzzyAutomaton) inf() uint8 { return uint8(a.maxEdits + 1) }

func (a *FuzzyAutomaton) startRow() []uint8 {
	row := make([]uint8, len(a.target)+1)
	for i := 1; i < len(row); i++ {
		if a.exact > 0 || i > a.maxEdits {
			row[i] = a.inf()
		} else {
			row[i] = uint8(i)
		}
	}
	return row
}

func (a *FuzzyAutomaton) intern(row []uint8) State {
	if int(row[len(a.target)]) <= a.maxEdits {
		return acceptAll
	}
	alive := false
	for _, v := range row {
		if int(v) <= a.maxEdits {
			alive = true
			break
		}
	}
	if !alive {
		return Dead
	}
	if s, ok := a.index[string(row)]; ok {
		return s
	}
	s := State(len(a.rows))
	stored := append([]uint8(nil), row...)
	a.rows = append(a.rows, stored)
	a.index[string(stored)] = s
	return s
}

// next computes the row reached from row on label into dst.
func (a *FuzzyAutomaton) next(dst, row []uint8, label byte) {
	inf := a.inf()
	min3 := func(x, y, z uint8) uint8 {
		m := x
		if y < m {
			m = y
		}
		if z < m {
			m = z
		}
		if m > inf {
			m = inf
		}
		return m
	}
	if a.exact > 0 {
		dst[0] = inf
	} else {
		dst[0] = min3(row[0]+1, inf, inf)
	}
	for i := 1; i <= len(a.target); i++ {
		diag := row[i-1]
		if a.target[i-1] != label {
			if i-1 < a.exact {
				diag = inf
			} else {
				diag++
			}
		}
		ins := row[i] + 1
		if i < a.exact {
			ins = inf
		}
		del := dst[i-1] + 1
		if i-1 < a.exact {
			del = inf
		}
		dst[i] = min3(diag, ins, del)
	}
}

// Start implements Automaton.
func (a *FuzzyAutomaton) Start() State {
	return a.intern(a.startRow())
}

// Step implements Automaton.
func (a *FuzzyAutomaton) Step(s State, label byte) State {
	if s == Dead {
		return Dead
	}
	if s == acceptAll {
		return acceptAll
	}
	a.next(a.scratch, a.rows[s], label)
	return a.intern(a.scratch)
}

// IsAccept implements Automaton.
func (a *FuzzyAutomaton) IsAccept(s State) bool { return s == acceptAll }

// Distance returns the edit distance between target and the best-matching prefix of
// input, or maxEdits+1 when no prefix is close enough.
func (a *FuzzyAutomaton) Distance(input []byte) int {
	row := a.startRow()
	best := int(row[len(a.target)])
	tmp := make([]uint8, len(row))
	for _, b := range input {
		a.next(tmp, row, b)
		row, tmp = tmp, row
		if d := int(row[len(a.target)]); d < best {
			best = d
		}
	}
	if best > a.maxEdits {
		return a.maxEdits + 1
	}
	return best
}
