package progression

type titleTier struct {
	below int
	title string
}

var titles = []titleTier{
	{5, "Script Kiddie"},
	{10, "Hello Worlder"},
	{20, "Développeur Junior"},
	{30, "Développeur Confirmé"},
	{40, "Tech Lead"},
	{50, "Architecte Logiciel"},
	{60, "Principal Engineer"},
	{70, "CTO"},
	{80, "Fellow"},
	{90, "Légende du Code"},
}

const topTitle = "Dieu du Code"

// Title returns the display title for a level. It has no gameplay effect.
func Title(level int) string {
	for _, t := range titles {
		if level < t.below {
			return t.title
		}
	}
	return topTitle
}

// Snapshot describes where a cumulative XP total sits within its level.
type Snapshot struct {
	XP         int     `json:"xp"`
	Level      int     `json:"level"`
	Title      string  `json:"title"`
	LevelStart int     `json:"levelStart"`
	LevelEnd   int     `json:"levelEnd"`
	Progress   float64 `json:"progress"` // 0-100 within the current level
}

// SnapshotFor builds the level display for xp.
func SnapshotFor(xp int) Snapshot {
	level := Level(xp)
	start, end := LevelRange(level)
	progress := 0.0
	if span := end - start; span > 0 && xp > start {
		progress = float64(xp-start) / float64(span) * 100
	}
	if progress > 100 {
		progress = 100
	}
	return Snapshot{
		XP:         xp,
		Level:      level,
		Title:      Title(level),
		LevelStart: start,
		LevelEnd:   end,
		Progress:   progress,
	}
}
