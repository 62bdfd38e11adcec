package sim

// Input is the last-known state of one player's directional keys.
// The zero value (all keys up) is the state for AI entities and for
// players whose record is missing.
type Input struct {
	Forward bool
	Left    bool
	Back    bool
	Right   bool
}

// ApplyKey flips the flag named by a wire key ("w", "a", "s", "d").
// Unknown keys are ignored and reported false.
func (in *Input) ApplyKey(key string, pressed bool) bool {
	switch key {
	case "w":
		in.Forward = pressed
	case "a":
		in.Left = pressed
	case "s":
		in.Back = pressed
	case "d":
		in.Right = pressed
	default:
		return false
	}
	return true
}
