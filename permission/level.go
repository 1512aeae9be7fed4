package permission

import "strconv"

// Level is a user's base security level. Higher values grant more access.
type Level int

const (
	// LevelReader is the lowest named level.
	LevelReader Level = 1
	// LevelUser is the default level for regular accounts.
	LevelUser Level = 2
	// LevelEditor is granted to accounts that maintain catalog data.
	LevelEditor Level = 3
	// LevelAdmin is the highest named level.
	LevelAdmin Level = 4
)

// String returns the level name, or its numeric value when it has no name.
func (l Level) String() string {
	switch l {
	case LevelReader:
		return "reader"
	case LevelUser:
		return "user"
	case LevelEditor:
		return "editor"
	case LevelAdmin:
		return "admin"
	default:
		return strconv.Itoa(int(l))
	}
}

// ParseLevel accepts a level name or a decimal integer.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "reader":
		return LevelReader, true
	case "user":
		return LevelUser, true
	case "editor":
		return LevelEditor, true
	case "admin":
		return LevelAdmin, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return Level(n), true
}
