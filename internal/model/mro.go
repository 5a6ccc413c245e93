package model

import "strings"

// linearize computes the C3 method-resolution order of a class with the given
// bases. The result starts with the bases' merge and excludes the class
// itself; each base's own MRO (self first) is already known.
func linearize(class string, bases []*Class) ([]*Class, error) {
	seqs := make([][]*Class, 0, len(bases)+1)
	seen := make(map[string]bool, len(bases))
	for _, b := range bases {
		if seen[b.name] {
			return nil, declErr(CodeInconsistentMRO, class, b.name, "base listed more than once")
		}
		seen[b.name] = true
		seqs = append(seqs, append([]*Class(nil), b.mro...))
	}
	seqs = append(seqs, append([]*Class(nil), bases...))

	var out []*Class
	for {
		seqs = dropEmpty(seqs)
		if len(seqs) == 0 {
			return out, nil
		}
		next := pickHead(seqs)
		if next == nil {
			return nil, declErr(CodeInconsistentMRO, class, "", "cannot linearise bases %s", headNames(seqs))
		}
		out = append(out, next)
		for i, s := range seqs {
			if s[0] == next {
				seqs[i] = s[1:]
			}
		}
	}
}

// pickHead returns the first sequence head that appears in no tail.
func pickHead(seqs [][]*Class) *Class {
	for _, s := range seqs {
		head := s[0]
		if !inTail(seqs, head) {
			return head
		}
	}
	return nil
}

func inTail(seqs [][]*Class, c *Class) bool {
	for _, s := range seqs {
		for _, t := range s[1:] {
			if t == c {
				return true
			}
		}
	}
	return false
}

func dropEmpty(seqs [][]*Class) [][]*Class {
	out := seqs[:0]
	for _, s := range seqs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func headNames(seqs [][]*Class) string {
	names := make([]string, 0, len(seqs))
	for _, s := range seqs {
		names = append(names, s[0].name)
	}
	return strings.Join(names, ", ")
}
