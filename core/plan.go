package core

// Plan is the lifecycle plan computed for one Save or Destroy call.
//
// Outer brackets Inner: for a save the generic save chains wrap the specific
// create or update chains. Destroy has no inner level.
type Plan struct {
	Outer Event
	Inner Event // empty when the operation has a single level
	Write OpKind
}

// PlanSave returns the plan for saving r: create for new records, update otherwise.
func PlanSave(r *Record) Plan {
	if r.IsNew() {
		return Plan{Outer: EventSave, Inner: EventCreate, Write: OpInsert}
	}
	return Plan{Outer: EventSave, Inner: EventUpdate, Write: OpUpdate}
}

// PlanDestroy returns the plan for destroying a record.
func PlanDestroy() Plan {
	return Plan{Outer: EventDestroy, Write: OpDelete}
}

// Before returns the before-phase events in execution order.
func (p Plan) Before() []Event {
	if p.Inner == "" {
		return []Event{p.Outer}
	}
	return []Event{p.Outer, p.Inner}
}

// After returns the after-phase events in execution order.
func (p Plan) After() []Event {
	if p.Inner == "" {
		return []Event{p.Outer}
	}
	return []Event{p.Inner, p.Outer}
}

// Phases lists the plan in execution order, with the store write in the middle,
// e.g. before_save, before_create, insert, after_create, after_save.
func (p Plan) Phases() []string {
	var out []string
	for _, ev := range p.Before() {
		out = append(out, Label(ev, Before))
	}
	out = append(out, string(p.Write))
	for _, ev := range p.After() {
		out = append(out, Label(ev, After))
	}
	return out
}
