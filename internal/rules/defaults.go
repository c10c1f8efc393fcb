package rules

// DefaultRules returns the starter rule set new installations are seeded
// with, mirroring the handful of illustrative rules the reference
// implementation ships.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "short-video-priority",
			Name:     "Prioritize short videos",
			Priority: 50,
			Enabled:  true,
			ConditionLogic: LogicAnd,
			Conditions: []Condition{
				{Type: Duration, Operator: LessThan, Value: 300.0},
			},
			Actions: []Action{
				{Type: SetPriority, Params: map[string]any{"priority": "high"}},
			},
		},
		{
			ID:       "music-audio-extract",
			Name:     "Extract audio from music uploads",
			Priority: 40,
			Enabled:  true,
			ConditionLogic: LogicOr,
			Conditions: []Condition{
				{Type: Domain, Operator: Contains, Value: "soundcloud.com"},
				{Type: TitlePattern, Operator: Contains, Value: "official audio"},
			},
			Actions: []Action{
				{Type: ExtractAudio, Params: map[string]any{"format": "mp3"}},
			},
		},
		{
			ID:       "peak-hours-rate-limit",
			Name:     "Rate-limit during peak hours",
			Priority: 30,
			Enabled:  true,
			ConditionLogic: LogicAnd,
			Conditions: []Condition{
				{Type: TimeOfDay, Operator: GreaterEqual, Value: 18.0},
				{Type: TimeOfDay, Operator: LessEqual, Value: 23.0},
			},
			Actions: []Action{
				{Type: RateLimit, Params: map[string]any{"limit_mbps": 5}},
			},
		},
		{
			ID:       "organize-by-uploader",
			Name:     "Organize completed downloads by uploader",
			Priority: 20,
			Enabled:  true,
			ConditionLogic: LogicAnd,
			Conditions: []Condition{
				{Type: Uploader, Operator: NotEquals, Value: ""},
			},
			Actions: []Action{
				{Type: AutoOrganize, Params: map[string]any{"by": "uploader"}},
			},
		},
		{
			ID:       "block-large-files-full-queue",
			Name:     "Block large downloads when the queue is saturated",
			Priority: 10,
			Enabled:  true,
			ConditionLogic: LogicAnd,
			Conditions: []Condition{
				{Type: FileSize, Operator: GreaterThan, Value: 5_000_000_000.0},
				{Type: QueueSize, Operator: GreaterThan, Value: 50.0},
			},
			Actions: []Action{
				{Type: BlockDownload, Params: map[string]any{"reason": "queue_saturated"}},
			},
		},
	}
}
