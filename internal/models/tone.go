package models

import "fmt"

// Tone selects the persona the assistant answers with.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneTutor        Tone = "tutor"
)

var AllTones = []Tone{ToneFriendly, ToneProfessional, ToneTutor}

func (t Tone) Valid() bool {
	switch t {
	case ToneFriendly, ToneProfessional, ToneTutor:
		return true
	}
	return false
}

// ParseTone maps an empty string to ToneFriendly and rejects unknown values.
func ParseTone(s string) (Tone, error) {
	if s == "" {
		return ToneFriendly, nil
	}
	t := Tone(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tone %q", s)
	}
	return t, nil
}
