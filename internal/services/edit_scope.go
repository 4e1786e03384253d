package services

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"

	"wayfarer/internal/domain"
)

const paceKey = "pace"

func sameActivities(a, b []domain.Activity) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func blockAt(it domain.Itinerary, s domain.Section) []domain.Activity {
	d := it.Day(s.Day)
	if d == nil {
		return nil
	}
	if b := d.Block(s.Block); b != nil {
		return b.Activities
	}
	return nil
}

// diffSections compares two itineraries section by section and returns the
// path keys that differ and those that do not.
func diffSections(before, after domain.Itinerary) (modified, unchanged []string) {
	days := len(before.DayPlans)
	if len(after.DayPlans) > days {
		days = len(after.DayPlans)
	}
	for n := 1; n <= days; n++ {
		for _, b := range domain.BlockOrder {
			s := domain.Section{Day: n, Block: b}
			if sameActivities(blockAt(before, s), blockAt(after, s)) {
				unchanged = append(unchanged, s.String())
			} else {
				modified = append(modified, s.String())
			}
		}
	}
	if before.Pace != after.Pace {
		modified = append(modified, paceKey)
	} else {
		unchanged = append(unchanged, paceKey)
	}
	return modified, unchanged
}

func sectionKeys(sections []domain.Section) []string {
	return lo.Map(sections, func(s domain.Section, _ int) string { return s.String() })
}

// expectedScope derives the sections an edit may change from the command
// and the itinerary it was applied to. unbounded is set when every section may
// change.
func expectedScope(before domain.Itinerary, cmd domain.EditCommand) (scope map[string]bool, unbounded bool) {
	scope = map[string]bool{}
	wholeDay := func(n int) {
		for _, b := range domain.BlockOrder {
			scope[domain.Section{Day: n, Block: b}.String()] = true
		}
	}
	switch cmd.Type {
	case domain.EditChangePace:
		return scope, true
	case domain.EditAddActivity:
		if cmd.TimeBlock.Valid() {
			scope[domain.Section{Day: cmd.SourceDay, Block: cmd.TimeBlock}.String()] = true
		} else {
			wholeDay(cmd.SourceDay)
		}
	case domain.EditRemove, domain.EditSwapActivity:
		if ref, ok := findActivity(before, cmd.ActivityName, cmd.SourceDay); ok {
			d := before.DayPlans[ref.day]
			scope[domain.Section{Day: d.Number, Block: d.Blocks[ref.block].Name}.String()] = true
		}
	case domain.EditSwapDays:
		wholeDay(cmd.SourceDay)
		wholeDay(cmd.TargetDay)
	case domain.EditMoveTimeBlock:
		scope[domain.Section{Day: cmd.SourceDay, Block: cmd.TimeBlock}.String()] = true
		scope[domain.Section{Day: cmd.TargetDay, Block: cmd.TargetBlock}.String()] = true
	case domain.EditReduceTravel:
		for _, d := range before.DayPlans {
			if cmd.SourceDay == 0 || d.Number == cmd.SourceDay {
				wholeDay(d.Number)
			}
		}
	}
	return scope, false
}

// scopeViolations checks the modified keys against the scope the command
// allows. touched is what the edit reports having changed; it must stay
// inside that scope too.
func scopeViolations(before, after domain.Itinerary, cmd domain.EditCommand, touched []domain.Section, modified []string) []string {
	var out []string
	allowed, unbounded := expectedScope(before, cmd)
	outside := lo.Filter(modified, func(k string, _ int) bool { return k != paceKey && !allowed[k] })

	if cmd.Type != domain.EditChangePace && lo.Contains(modified, paceKey) {
		out = append(out, "pace changed by a "+string(cmd.Type)+" edit")
	}

	switch cmd.Type {
	case domain.EditChangePace:
		// Any section may change.
	case domain.EditAddActivity, domain.EditRemove, domain.EditSwapActivity:
		blocks := lo.Without(modified, paceKey)
		if len(blocks) != 1 {
			out = append(out, fmt.Sprintf("%s should change exactly one block, changed %d: %v", cmd.Type, len(blocks), blocks))
		}
		for _, k := range outside {
			out = append(out, fmt.Sprintf("%s changed outside its target block", k))
		}
	case domain.EditSwapDays:
		for _, k := range outside {
			out = append(out, fmt.Sprintf("%s changed although only days %d and %d were swapped", k, cmd.SourceDay, cmd.TargetDay))
		}
		for _, b := range domain.BlockOrder {
			s1 := domain.Section{Day: cmd.SourceDay, Block: b}
			s2 := domain.Section{Day: cmd.TargetDay, Block: b}
			if !sameActivities(blockAt(after, s1), blockAt(before, s2)) {
				out = append(out, fmt.Sprintf("%s does not match the old %s", s1, s2))
			}
			if !sameActivities(blockAt(after, s2), blockAt(before, s1)) {
				out = append(out, fmt.Sprintf("%s does not match the old %s", s2, s1))
			}
		}
	case domain.EditMoveTimeBlock:
		for _, k := range outside {
			out = append(out, fmt.Sprintf("%s changed outside the moved blocks", k))
		}
	case domain.EditReduceTravel:
		for _, k := range outside {
			out = append(out, fmt.Sprintf("%s changed outside the re-routed days", k))
		}
		for _, d := range before.DayPlans {
			if cmd.SourceDay != 0 && d.Number != cmd.SourceDay {
				continue
			}
			moved := after.Day(d.Number)
			if moved == nil || !sameLocatorSet(d.Activities(), moved.Activities()) {
				out = append(out, fmt.Sprintf("day %d lost or gained activities while re-routing", d.Number))
			}
		}
	default:
		return append(out, "unknown edit type "+string(cmd.Type))
	}

	if !unbounded {
		for _, k := range lo.Uniq(sectionKeys(touched)) {
			if !allowed[k] {
				out = append(out, fmt.Sprintf("%s edit reported touching %s outside its scope", cmd.Type, k))
			}
		}
	}
	return out
}

func sameLocatorSet(a, b []domain.Activity) bool {
	la := lo.Map(a, func(x domain.Activity, _ int) string { return x.SourceLocator })
	lb := lo.Map(b, func(x domain.Activity, _ int) string { return x.SourceLocator })
	sort.Strings(la)
	sort.Strings(lb)
	return reflect.DeepEqual(la, lb)
}
