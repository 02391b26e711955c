package taskpacker

// LatenessFactor weighs lateness above the finish time compression term.
const LatenessFactor = 1000

// ScheduleObjective evaluates the minimization objective on already scheduled tasks:
// weighted lateness times LatenessFactor plus the end of every task.
// Unscheduled tasks are skipped.
func ScheduleObjective(tasks []*Task) int64 {
	var result int64

	for _, task := range tasks {
		end, isScheduled := task.ScheduledEnd()
		if !isScheduled {
			continue
		}

		result = result + LatenessFactor*task.Lateness() + end
	}

	return result
}

// addObjective either builds the minimization objective or,
// when not optimizing, turns due times into hard deadlines.
func (c *CompiledModel) addObjective(optimize bool, workUnits []*WorkUnit) {
	if !optimize {
		c.addHardDueTimes(workUnits)

		return
	}

	objective := Objective{
		LatenessFactor: LatenessFactor,
		Finish:         make([]int, 0, len(c.Tasks)),
	}

	for ix, task := range c.Tasks {
		objective.Finish = append(objective.Finish, ix)

		if task.DueTime == nil {
			continue
		}

		objective.Lateness = append(
			objective.Lateness,
			LatenessTerm{
				Interval: ix,
				DueTime:  *task.DueTime,
				Weight:   task.GetPriority(),
			},
		)
	}

	for _, wu := range workUnits {
		if wu.DueTime == nil {
			continue
		}

		objective.Lateness = append(
			objective.Lateness,
			LatenessTerm{
				Interval: c.intervalOf[wu.Last()],
				DueTime:  *wu.DueTime,
				Weight:   wu.GetPriority(),
			},
		)
	}

	c.Model.Objective = &objective
}

// addHardDueTimes enforces finish < due, so start <= due - duration - 1.
func (c *CompiledModel) addHardDueTimes(workUnits []*WorkUnit) {
	for ix, task := range c.Tasks {
		if task.DueTime == nil {
			continue
		}

		c.Model.RestrictMax(ix, *task.DueTime-task.Duration-1)
	}

	for _, wu := range workUnits {
		if wu.DueTime == nil {
			continue
		}

		last := wu.Last()

		c.Model.RestrictMax(c.intervalOf[last], *wu.DueTime-last.Duration-1)
	}
}
