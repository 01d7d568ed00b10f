package domain

import "sort"

// Index returns the position of code in the matrix, or -1.
func (m *Matrix) Index(code string) int {
	for i, c := range m.Codes {
		if c == code {
			return i
		}
	}
	return -1
}

// Neighbours lists every other framework by descending similarity to code.
// Ties keep matrix order.
func (m *Matrix) Neighbours(code string) []Neighbour {
	i := m.Index(code)
	if i < 0 {
		return nil
	}
	out := make([]Neighbour, 0, len(m.Codes)-1)
	for j, c := range m.Codes {
		if j == i {
			continue
		}
		out = append(out, Neighbour{Code: c, Similarity: m.Values[i][j]})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Similarity > out[b].Similarity })
	return out
}
