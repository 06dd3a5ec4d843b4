package solver

import "github.com/matzehuels/moxie/pkg/maven"

// mediate picks one candidate per mediation id: the one nearest the
// project, and among equally near ones the first found. Winners keep the
// order in which their mediation id was first seen.
func mediate(candidates []*maven.Dependency) []*maven.Dependency {
	index := make(map[string]int, len(candidates))
	var out []*maven.Dependency
	for _, c := range candidates {
		id := c.MediationID()
		i, ok := index[id]
		if !ok {
			index[id] = len(out)
			out = append(out, c)
			continue
		}
		if c.Ring < out[i].Ring {
			out[i] = c
		}
	}
	return out
}
