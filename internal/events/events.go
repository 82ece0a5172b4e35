// Package events is the in-process gameplay event bus.
// events.go describes the typed payloads published by the trivia and
// achievement features.
package events

// Event names
const (
	NameCorrect             = "correct"
	NameWrong               = "wrong"
	NameLevelUp             = "level-up"
	NameSessionComplete     = "session-complete"
	NameAchievementUnlocked = "achievement-unlocked"
)

// fields lists the numeric fields each event exposes through Field.
var fields = map[string][]string{
	NameCorrect:             {"streak", "sats_earned", "correct_count"},
	NameWrong:               {"streak"},
	NameLevelUp:             {"new_level"},
	NameSessionComplete:     {"score", "total", "level"},
	NameAchievementUnlocked: {"reward", "unlocked_count"},
}

// HasField reports whether events named name carry the numeric field.
func HasField(name, field string) bool {
	for _, f := range fields[name] {
		if f == field {
			return true
		}
	}
	return false
}

// Event is an immutable payload keyed by its name.
// Field exposes numeric payload fields by name so declarative rules can
// read them without knowing the concrete type.
type Event interface {
	Name() string
	UserID() int64
	Field(name string) (int64, bool)
}

// CorrectAnswer fires after a correct answer has been credited.
type CorrectAnswer struct {
	User         int64
	SessionID    string
	QuestionID   string
	Streak       int   // streak after this answer
	SatsEarned   int64 // reward for this answer
	CorrectCount int   // lifetime correct answers
}

func (e CorrectAnswer) Name() string  { return NameCorrect }
func (e CorrectAnswer) UserID() int64 { return e.User }

func (e CorrectAnswer) Field(name string) (int64, bool) {
	switch name {
	case "streak":
		return int64(e.Streak), true
	case "sats_earned":
		return e.SatsEarned, true
	case "correct_count":
		return int64(e.CorrectCount), true
	}
	return 0, false
}

// WrongAnswer fires after an incorrect answer reset the streak.
type WrongAnswer struct {
	User       int64
	SessionID  string
	QuestionID string
}

func (e WrongAnswer) Name() string  { return NameWrong }
func (e WrongAnswer) UserID() int64 { return e.User }

func (e WrongAnswer) Field(name string) (int64, bool) {
	if name == "streak" {
		return 0, true
	}
	return 0, false
}

// LevelUp fires when a user unlocks the next level.
type LevelUp struct {
	User     int64
	NewLevel int
}

func (e LevelUp) Name() string  { return NameLevelUp }
func (e LevelUp) UserID() int64 { return e.User }

func (e LevelUp) Field(name string) (int64, bool) {
	if name == "new_level" {
		return int64(e.NewLevel), true
	}
	return 0, false
}

// SessionComplete fires when the last question of a session is answered.
type SessionComplete struct {
	User      int64
	SessionID string
	Level     int
	Score     int // correct answers in the session
	Total     int // questions in the session
}

func (e SessionComplete) Name() string  { return NameSessionComplete }
func (e SessionComplete) UserID() int64 { return e.User }

func (e SessionComplete) Field(name string) (int64, bool) {
	switch name {
	case "score":
		return int64(e.Score), true
	case "total":
		return int64(e.Total), true
	case "level":
		return int64(e.Level), true
	}
	return 0, false
}

// AchievementUnlocked fires after an unlock row was written.
type AchievementUnlocked struct {
	User          int64
	Type          string
	Title         string
	Reward        int64
	UnlockedCount int // unlocks the user holds, including this one
}

func (e AchievementUnlocked) Name() string  { return NameAchievementUnlocked }
func (e AchievementUnlocked) UserID() int64 { return e.User }

func (e AchievementUnlocked) Field(name string) (int64, bool) {
	switch name {
	case "reward":
		return e.Reward, true
	case "unlocked_count":
		return int64(e.UnlockedCount), true
	}
	return 0, false
}
