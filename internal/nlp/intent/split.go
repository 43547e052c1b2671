package intent

import (
	"math"
	"math/rand/v2"
	"sort"
)

type split struct {
	train      []int
	validation []int
	stratified bool
}

// splitIndices partitions example indices into training and validation sets.
// Stratification is used when every label has at least two members and both
// partitions can hold one example of each label; otherwise the examples are
// shuffled and cut.
func splitIndices(labels []string, fraction float64, seed uint64) split {
	n := len(labels)
	nVal := int(math.Ceil(fraction*float64(n) - 1e-9))
	nVal = min(nVal, n-1)
	if nVal <= 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return split{train: all}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	classes := make([]string, 0, len(byLabel))
	for l := range byLabel {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	canStratify := len(classes) >= 2 && nVal >= len(classes) && n-nVal >= len(classes)
	for _, c := range classes {
		if len(byLabel[c]) < 2 {
			canStratify = false
		}
	}

	if !canStratify {
		perm := rng.Perm(n)
		s := split{validation: perm[:nVal], train: perm[nVal:]}
		sort.Ints(s.train)
		sort.Ints(s.validation)
		return s
	}

	// Largest-remainder allocation of validation slots per class, keeping at
	// least one member of every class on each side.
	quota := make([]int, len(classes))
	rem := make([]float64, len(classes))
	assigned := 0
	for i, c := range classes {
		exact := fraction * float64(len(byLabel[c]))
		q := int(math.Floor(exact))
		q = max(1, min(q, len(byLabel[c])-1))
		quota[i] = q
		rem[i] = exact - math.Floor(exact)
		assigned += q
	}
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
	for assigned < nVal {
		grew := false
		for _, i := range order {
			if assigned == nVal {
				break
			}
			if quota[i] < len(byLabel[classes[i]])-1 {
				quota[i]++
				assigned++
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	for assigned > nVal {
		shrunk := false
		for k := len(order) - 1; k >= 0 && assigned > nVal; k-- {
			i := order[k]
			if quota[i] > 1 {
				quota[i]--
				assigned--
				shrunk = true
			}
		}
		if !shrunk {
			break
		}
	}

	var s split
	s.stratified = true
	for i, c := range classes {
		members := append([]int(nil), byLabel[c]...)
		rng.Shuffle(len(members), func(a, b int) { members[a], members[b] = members[b], members[a] })
		s.validation = append(s.validation, members[:quota[i]]...)
		s.train = append(s.train, members[quota[i]:]...)
	}
	sort.Ints(s.train)
	sort.Ints(s.validation)
	return s
}
