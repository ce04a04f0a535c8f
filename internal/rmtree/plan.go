package rmtree

import "github.com/juju/collections/set"

// Plan turns the analysis into a removal order.
//
// Dependencies the liveness pass found removable are peeled off repeatedly:
// each pass schedules every pending dependency whose users have all been
// scheduled already, until a pass schedules nothing. This recovers
// dependencies whose only users are other members of the same batch.
//
// Whether the root itself may be removed is the caller's decision; Plan
// always schedules it first.
func (an *Analysis) Plan() RemovalPlan {
	return plan(an.Root, an.Closure, an.Liveness, func(name string) set.Strings {
		return an.users[name]
	})
}

func plan(root string, closure []string, liveness LivenessTable, usersOf func(string) set.Strings) RemovalPlan {
	deleted := set.NewStrings(root)
	order := []string{root}

	var pending []string

	for _, dep := range closure {
		if liveness.Removable(dep) {
			pending = append(pending, dep)
		}
	}

	for changed := true; changed; {
		changed = false
		remaining := pending[:0]

		for _, dep := range pending {
			if usersOf(dep).Difference(deleted).IsEmpty() {
				deleted.Add(dep)
				order = append(order, dep)
				changed = true

				continue
			}

			remaining = append(remaining, dep)
		}

		pending = remaining
	}

	retained := make(map[string]BlockingSet)

	for _, dep := range closure {
		if deleted.Contains(dep) {
			continue
		}

		if blockers := liveness[dep]; !blockers.IsEmpty() {
			retained[dep] = blockers

			continue
		}

		// Removable in isolation but some user outside the order remains.
		retained[dep] = usersOf(dep).Difference(deleted)
	}

	return RemovalPlan{
		Root:     root,
		Order:    order,
		Retained: retained,
	}
}
