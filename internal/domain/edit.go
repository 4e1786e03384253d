package domain

// EditType is the closed set of itinerary edits.
type EditType string

const (
	EditChangePace    EditType = "CHANGE_PACE"
	EditAddActivity   EditType = "ADD_ACTIVITY"
	EditRemove        EditType = "REMOVE_ACTIVITY"
	EditSwapActivity  EditType = "SWAP_ACTIVITY"
	EditSwapDays      EditType = "SWAP_DAYS"
	EditMoveTimeBlock EditType = "MOVE_TIME_BLOCK"
	EditReduceTravel  EditType = "REDUCE_TRAVEL"
)

func ParseEditType(s string) (EditType, bool) {
	switch EditType(s) {
	case EditChangePace, EditAddActivity, EditRemove, EditSwapActivity,
		EditSwapDays, EditMoveTimeBlock, EditReduceTravel:
		return EditType(s), true
	}
	return "", false
}

// EditCommand is a parsed edit. Day numbers are 1-based; zero means unset.
type EditCommand struct {
	Type         EditType      `json:"type"`
	SourceDay    int           `json:"source_day,omitempty"`
	TargetDay    int           `json:"target_day,omitempty"`
	TimeBlock    TimeBlockName `json:"time_block,omitempty"`
	TargetBlock  TimeBlockName `json:"target_block,omitempty"`
	ActivityName string        `json:"activity_name,omitempty"`
	Query        string        `json:"query,omitempty"`
	Pace         Pace          `json:"pace,omitempty"`
	Raw          string        `json:"-"`
	Source       string        `json:"-"`
}

// EditResult carries the mutated itinerary and the sections the engine
// intended to touch.
type EditResult struct {
	Itinerary Itinerary
	Command   EditCommand
	Touched   []Section
	Added     []POI
}
